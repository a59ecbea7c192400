package domain

import (
	"strings"

	"golang.org/x/net/html"
)

// IsMarkup reports whether body contains at least one HTML element. Delivery
// uses it to pick the message content type: any tag makes the whole body HTML,
// otherwise it is sent as plain text. Stray angle brackets that do not
// tokenize as tags ("a < b") do not count.
func IsMarkup(body string) bool {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			return true
		}
	}
}
