package snapsave

import (
	"errors"
	"reflect"
	"testing"
)

func TestExtractLinks(t *testing.T) {
	const origin = "https://intermediary.example"

	tests := []struct {
		name     string
		fragment string
		want     []string
	}{
		{
			name:     "absolute href passes through",
			fragment: `<div class="download-items__btn"><a href="https://cdn.example/v.mp4">Download</a></div>`,
			want:     []string{"https://cdn.example/v.mp4"},
		},
		{
			name:     "plain http is also absolute",
			fragment: `<div class="download-items__btn"><a href="http://cdn.example/v.mp4">Download</a></div>`,
			want:     []string{"http://cdn.example/v.mp4"},
		},
		{
			name:     "relative href resolves against origin",
			fragment: `<div class="download-items__btn"><a href="/d/abc.mp4">Download</a></div>`,
			want:     []string{"https://intermediary.example/d/abc.mp4"},
		},
		{
			name:     "protocol-relative href resolves against origin",
			fragment: `<div class="download-items__btn"><a href="//cdn.example/v.mp4">Download</a></div>`,
			want:     []string{"https://intermediary.example//cdn.example/v.mp4"},
		},
		{
			name: "document order preserved",
			fragment: `<div>
				<div class="download-items__btn"><a href="/d/first.mp4">HD</a></div>
				<span class="download-items__btn"><a href="https://cdn.example/second.mp4">SD</a></span>
				<div class="download-items__btn"><a href="/d/third.jpg">Thumb</a></div>
			</div>`,
			want: []string{
				"https://intermediary.example/d/first.mp4",
				"https://cdn.example/second.mp4",
				"https://intermediary.example/d/third.jpg",
			},
		},
		{
			name: "only first anchor per button counts",
			fragment: `<div class="download-items__btn">
				<a href="/d/primary.mp4">Download</a>
				<a href="/d/ignored.mp4">Mirror</a>
			</div>`,
			want: []string{"https://intermediary.example/d/primary.mp4"},
		},
		{
			name: "buttons without usable anchors are skipped",
			fragment: `<div>
				<div class="download-items__btn"><button>no anchor</button></div>
				<div class="download-items__btn"><a>no href</a></div>
				<div class="download-items__btn"><a href="/d/kept.mp4">Download</a></div>
			</div>`,
			want: []string{"https://intermediary.example/d/kept.mp4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractLinks(tt.fragment, origin)
			if err != nil {
				t.Fatalf("extractLinks() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractLinks() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractLinks_NoButtons(t *testing.T) {
	fragments := []string{
		``,
		`<div class="download-item"><a href="/d/abc.mp4">wrong class</a></div>`,
		`<div class="download-items__btn"><a>href missing everywhere</a></div>`,
	}

	for _, fragment := range fragments {
		if _, err := extractLinks(fragment, "https://intermediary.example"); !errors.Is(err, ErrNoLinks) {
			t.Errorf("extractLinks(%q) error = %v, want ErrNoLinks", fragment, err)
		}
	}
}
