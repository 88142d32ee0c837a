package snapsave

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractLinks collects the download button targets from a decoded HTML
// fragment in document order. Each element carrying the download button
// class contributes the href of its first anchor; targets without an
// absolute scheme are resolved against the intermediary origin.
func extractLinks(fragment, origin string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("%w: parse fragment: %v", ErrMalformedResponse, err)
	}

	var links []string
	doc.Find(".download-items__btn").Each(func(_ int, btn *goquery.Selection) {
		href, ok := btn.Find("a").First().Attr("href")
		if !ok || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			href = origin + href
		}
		links = append(links, href)
	})

	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	return links, nil
}
