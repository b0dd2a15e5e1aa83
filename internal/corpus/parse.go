package corpus

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// titleSelector picks italicised titles out of list tables and bulleted
// columns, which is how reference wikis mark up work titles.
const titleSelector = "table.wikitable tr > td:first-child i, " +
	"table.wikitable tr > th[scope=row] i, " +
	"div.div-col li > i, " +
	"div.mw-parser-output > ul > li > i"

// minTitleRunes drops very short titles ("It", "Up") that would match
// ordinary words.
const minTitleRunes = 4

var (
	trailingParen = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
	footnoteRef   = regexp.MustCompile(`\[[^\]]*\]`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

// ExtractTitles parses an HTML page and returns its normalized, deduplicated
// titles in document order.
func ExtractTitles(page []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var raw []string
	doc.Find(titleSelector).Each(func(_ int, sel *goquery.Selection) {
		raw = append(raw, sel.Text())
	})
	return NormalizeTitles(raw), nil
}

// NormalizeTitle strips footnote markers, quotes and trailing parenthetical
// qualifiers such as "(film)", "(TV special)" or "(1999)".
func NormalizeTitle(s string) string {
	s = footnoteRef.ReplaceAllString(s, "")
	s = spaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	for {
		stripped := trailingParen.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.Trim(s, ` "“”'`)
	return strings.TrimSpace(s)
}

// NormalizeTitles normalizes and deduplicates case-insensitively, keeping the
// first spelling seen.
func NormalizeTitles(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		t := NormalizeTitle(r)
		if utf8.RuneCountInString(t) < minTitleRunes {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
