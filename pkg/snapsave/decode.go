// Package snapsave resolves social media posts to direct media URLs through
// the snapsave.app scraping intermediary. The intermediary answers with an
// HTML page whose inline script carries the download markup through a
// packer: a custom base-N encoding that has to be reversed before the links
// can be read out.
package snapsave

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Decode errors. ErrMalformedResponse and ErrNonNumericParam indicate the
// intermediary changed its response format; callers must not retry them.
// ErrNoLinks means the decode succeeded but the post carries no media.
var (
	// ErrMalformedResponse is returned when the intermediary response does not
	// contain the expected packer structure.
	ErrMalformedResponse = errors.New("malformed intermediary response")

	// ErrNonNumericParam is returned when the packer's numeric arguments fail
	// to parse.
	ErrNonNumericParam = errors.New("non-numeric packer argument")

	// ErrNoLinks is returned when the decoded markup contains no download
	// buttons.
	ErrNoLinks = errors.New("no download links found")
)

// digitSet is the shared master alphabet for radix conversion. Both the
// source and target alphabets of a conversion are prefixes of it.
const digitSet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ+/"

const (
	payloadMarker = `decodeURIComponent(escape(r))}(`
	payloadEnd    = `))`

	sectionStart = `getElementById("download-section").innerHTML = "`
	sectionEnd   = `"; document.getElementById("inputData").remove(); `
)

// payload holds the arguments of the inline packer call. The script follows
// the h,u,n,t,e,r convention: h is the ciphertext, n the substitution
// alphabet, t the code point offset, e the radix selector. u carries no
// input and r is reassigned by the packer before use, so only four fields
// matter for decoding.
type payload struct {
	data     string // h
	mask     string // u, unused
	alphabet string // n
	offset   string // t
	radix    string // e
	seed     string // r, dead input
}

// extractPayload pulls the packer arguments out of a raw response body.
// The body must contain the packer invocation marker followed by a
// comma-separated argument list terminated by the first "))". At least six
// arguments are required; extras are ignored.
func extractPayload(body string) (*payload, error) {
	_, rest, ok := strings.Cut(body, payloadMarker)
	if !ok {
		return nil, fmt.Errorf("%w: packer marker not found", ErrMalformedResponse)
	}

	args, _, ok := strings.Cut(rest, payloadEnd)
	if !ok {
		return nil, fmt.Errorf("%w: packer arguments not terminated", ErrMalformedResponse)
	}

	fields := strings.Split(args, ",")
	if len(fields) < 6 {
		return nil, fmt.Errorf("%w: want 6 packer arguments, got %d", ErrMalformedResponse, len(fields))
	}

	for i := range fields[:6] {
		fields[i] = cleanField(fields[i])
	}

	return &payload{
		data:     fields[0],
		mask:     fields[1],
		alphabet: fields[2],
		offset:   fields[3],
		radix:    fields[4],
		seed:     fields[5],
	}, nil
}

// cleanField strips surrounding whitespace and a single layer of double
// quotes from an extracted argument.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

// convertBase reinterprets segment as a base-from numeral and re-renders it
// as a base-to numeral, using prefixes of the shared digit set as the
// alphabets on both sides. The segment is consumed least significant digit
// last; characters outside the source alphabet contribute zero but still
// occupy a digit position. A zero value renders as "0".
func convertBase(segment string, from, to int) string {
	fromDigits := digitSet[:from]
	toDigits := digitSet[:to]

	value := 0
	power := 1
	for i := len(segment) - 1; i >= 0; i-- {
		if d := strings.IndexByte(fromDigits, segment[i]); d >= 0 {
			value += d * power
		}
		power *= from
	}

	if value == 0 {
		return "0"
	}

	var out []byte
	for value > 0 {
		out = append(out, toDigits[value%to])
		value /= to
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

// substituteAlphabet replaces every occurrence of each alphabet character in
// segment with the decimal string of its index, one alphabet position at a
// time in order. The replacements are sequential, not simultaneous: a later
// replacement may re-match digits introduced by an earlier one, and the
// packer relies on exactly that behavior.
func substituteAlphabet(segment, alphabet string) string {
	idx := 0
	for _, ch := range alphabet {
		segment = strings.ReplaceAll(segment, string(ch), strconv.Itoa(idx))
		idx++
	}
	return segment
}

// decodeData reverses the packer transform. The ciphertext splits on the
// delimiter character alphabet[radix]; each segment passes through the
// index substitution, converts from base-radix to decimal, and shifts down
// by offset to yield one code point. The accumulated string is then
// percent-decoded.
func decodeData(p *payload) (string, error) {
	offset, err := strconv.Atoi(p.offset)
	if err != nil {
		return "", fmt.Errorf("%w: offset %q", ErrNonNumericParam, p.offset)
	}
	radix, err := strconv.Atoi(p.radix)
	if err != nil {
		return "", fmt.Errorf("%w: radix %q", ErrNonNumericParam, p.radix)
	}

	alphabet := []rune(p.alphabet)
	if radix < 0 || radix >= len(alphabet) {
		return "", fmt.Errorf("%w: radix %d outside alphabet of length %d", ErrMalformedResponse, radix, len(alphabet))
	}
	delimiter := string(alphabet[radix])

	// r is the packer's reused sixth argument, modeled as a local accumulator.
	// Empty segments, produced by adjacent or trailing delimiters, decode to
	// nothing rather than to code point zero.
	var r strings.Builder
	for _, segment := range strings.Split(p.data, delimiter) {
		if segment == "" {
			continue
		}
		substituted := substituteAlphabet(segment, p.alphabet)

		value, err := strconv.Atoi(convertBase(substituted, radix, 10))
		if err != nil {
			return "", fmt.Errorf("%w: segment %q: %v", ErrMalformedResponse, segment, err)
		}

		cp := value - offset
		if cp < 0 || cp > utf8.MaxRune {
			return "", fmt.Errorf("%w: code point %d out of range", ErrMalformedResponse, cp)
		}
		r.WriteRune(rune(cp))
	}

	return unquote(r.String()), nil
}

// unquote percent-decodes s. Only well-formed %XX triplets are decoded;
// malformed escapes and '+' pass through unchanged.
func unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				b.WriteByte(hi<<4 | lo)
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// extractDownloadSection slices the download markup out of the decoded
// script text and strips the escaping backslashes, yielding the HTML
// fragment that carries the download buttons.
func extractDownloadSection(decoded string) (string, error) {
	_, rest, ok := strings.Cut(decoded, sectionStart)
	if !ok {
		return "", fmt.Errorf("%w: download section not found", ErrMalformedResponse)
	}

	section, _, ok := strings.Cut(rest, sectionEnd)
	if !ok {
		return "", fmt.Errorf("%w: download section not terminated", ErrMalformedResponse)
	}

	return strings.ReplaceAll(section, `\`, ""), nil
}

// DecodeBody runs the full unpacking pipeline on a raw intermediary response
// body and returns the embedded download HTML fragment.
func DecodeBody(body string) (string, error) {
	p, err := extractPayload(body)
	if err != nil {
		return "", err
	}

	decoded, err := decodeData(p)
	if err != nil {
		return "", err
	}

	return extractDownloadSection(decoded)
}
