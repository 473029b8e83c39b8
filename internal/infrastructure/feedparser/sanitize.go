package feedparser

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripMarkup reduces a feed text field to plain text: CDATA wrappers are
// unwrapped, HTML tags removed, entities decoded, whitespace collapsed.
func StripMarkup(value string) string {
	value = unwrapCDATA(value)

	if strings.ContainsAny(value, "<>") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(value)); err == nil {
			value = doc.Text()
		}
	}

	value = html.UnescapeString(value)
	return strings.Join(strings.Fields(value), " ")
}

func unwrapCDATA(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "<![CDATA[") && strings.HasSuffix(trimmed, "]]>") {
		return strings.TrimSuffix(strings.TrimPrefix(trimmed, "<![CDATA["), "]]>")
	}
	return value
}
