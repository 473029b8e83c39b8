package feedparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkup(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Council meets tonight", "Council meets tonight"},
		{"html removed", "<p>The <b>council</b> meets tonight.</p>", "The council meets tonight."},
		{"cdata unwrapped", "<![CDATA[Fair on <em>Main Street</em>]]>", "Fair on Main Street"},
		{"entities decoded", "Fish &amp; chips", "Fish & chips"},
		{"whitespace collapsed", "  too \n\t much   space ", "too much space"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripMarkup(tc.in))
		})
	}
}
