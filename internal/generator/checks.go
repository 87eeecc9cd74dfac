package generator

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var placeholderExpr = regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\}`)

// Usable reports whether generated content can be sent: a subject, visible body text, and no
// template placeholders left unrendered. Bodies may be plain text or HTML.
func Usable(c Content) bool {
	if c.Subject == "" || placeholderExpr.MatchString(c.Subject) {
		return false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(c.Body))
	if err != nil {
		return false
	}
	doc.Find("script, style").Remove()
	text := strings.TrimSpace(doc.Text())
	if text == "" {
		return false
	}
	return !placeholderExpr.MatchString(text)
}
