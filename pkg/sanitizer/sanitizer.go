package sanitizer

import (
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

// StripTags removes all HTML/XML tags from the input and keeps only the text
// content. It walks the input with an HTML tokenizer and extracts text nodes.
//
// Note: this is a content-cleanup helper, not an XSS defence.
//
// Examples:
//   - "<p>Hello <strong>World</strong></p>" -> "Hello World"
//   - "Plain text" -> "Plain text"
func StripTags(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	tokenizer := html.NewTokenizer(strings.NewReader(input))
	var buf strings.Builder

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if tokenizer.Err() == io.EOF {
				break
			}
			return ""
		}

		if tt == html.TextToken {
			buf.WriteString(tokenizer.Token().Data)
		}
	}

	return strings.TrimSpace(buf.String())
}

// Excerpt derives a plain-text excerpt from HTML content: tags are stripped,
// whitespace runs collapse to single spaces, and the result is cut at the last
// word boundary before maxLen with an ellipsis appended.
func Excerpt(content string, maxLen int) string {
	text := collapseWhitespace(StripTags(content))
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}

	cut := text[:maxLen]
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRightFunc(cut, unicode.IsSpace) + "…"
}

func collapseWhitespace(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
