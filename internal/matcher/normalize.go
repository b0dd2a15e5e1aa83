package matcher

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var errEmptyTitle = errors.New("empty title")

var leadingArticle = regexp.MustCompile(`^(the|a|an) `)

// foldText lowercases, strips diacritics, turns punctuation into spaces and
// collapses runs of whitespace.
func foldText(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// normalizeTitle is foldText with a leading article removed. Used for
// required-title comparison.
func normalizeTitle(s string) string {
	return leadingArticle.ReplaceAllString(foldText(s), "")
}

// titlePattern turns a literal title into a case-insensitive pattern with
// flexible internal whitespace. Word boundaries are only added next to word
// characters, since \b never matches beside punctuation at the edge.
func titlePattern(title string) (*regexp.Regexp, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errEmptyTitle
	}
	parts := strings.Fields(title)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := strings.Join(parts, `\s+`)
	if isWordByte(title[0]) {
		expr = `\b` + expr
	}
	if isWordByte(title[len(title)-1]) {
		expr += `\b`
	}
	return regexp.Compile(`(?i)` + expr)
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
