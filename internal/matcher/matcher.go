// Package matcher scores media items against holidays using the pattern
// library and an optional supplementary title corpus.
package matcher

import (
	"regexp"

	ahocorasick "github.com/cloudflare/ahocorasick"

	"github.com/holidarr/holidarr/internal/holiday"
	"github.com/holidarr/holidarr/internal/media"
	"github.com/holidarr/holidarr/internal/patterns"
)

// DefaultThreshold is the minimum score for a keyword match.
const DefaultThreshold = 8

// Scoring weights.
const (
	includeTitlePoints   = 10
	includeSummaryPoints = 3
	strongTitlePoints    = 15
	strongSummaryPoints  = 5
	requiredYearSlack    = 1
)

// HolidayMatch is the set of items matching one holiday in a run.
type HolidayMatch struct {
	Holiday  holiday.Holiday  `json:"holiday"`
	Episodes []*media.Episode `json:"episodes"`
	Movies   []*media.Movie   `json:"movies"`
}

// Items returns episodes followed by movies.
func (m HolidayMatch) Items() []media.Item {
	out := make([]media.Item, 0, len(m.Episodes)+len(m.Movies))
	for _, ep := range m.Episodes {
		out = append(out, ep)
	}
	for _, mv := range m.Movies {
		out = append(out, mv)
	}
	return out
}

type requiredTitle struct {
	title string
	year  int
}

type compiledHoliday struct {
	include  []*regexp.Regexp
	strong   []*regexp.Regexp
	corpus   *corpusIndex
	required []requiredTitle
}

// Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	order     []holiday.Holiday
	holidays  map[holiday.Holiday]*compiledHoliday
	exclude   []*regexp.Regexp
	threshold int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithThreshold overrides DefaultThreshold for IsMatch and FindMatches.
func WithThreshold(threshold int) Option {
	return func(m *Matcher) {
		m.threshold = threshold
	}
}

// New compiles the library. supplementary maps holidays to literal titles,
// typically from the corpus fetcher, and may be nil. Titles for holidays
// missing from the library are ignored. Patterns that fail to compile are
// skipped; use patterns.Library.Validate to surface them.
func New(lib patterns.Library, supplementary map[holiday.Holiday][]string, opts ...Option) *Matcher {
	m := &Matcher{
		order:     lib.Order(),
		holidays:  make(map[holiday.Holiday]*compiledHoliday, len(lib.Holidays)),
		exclude:   compileAll(lib.Exclude),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, h := range m.order {
		p := lib.Holidays[h]
		ch := &compiledHoliday{
			include: compileAll(p.Include),
			strong:  compileAll(p.Strong),
			corpus:  newCorpusIndex(supplementary[h]),
		}
		for _, rt := range p.Required {
			ch.required = append(ch.required, requiredTitle{title: normalizeTitle(rt.Title), year: rt.Year})
		}
		m.holidays[h] = ch
	}
	return m
}

func compileAll(exprs []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(`(?i)` + expr)
		if err != nil {
			continue
		}
		out = append(out, re)
	}
	return out
}

// Holidays returns the holidays this matcher can score, in stable order.
func (m *Matcher) Holidays() []holiday.Holiday {
	out := make([]holiday.Holiday, len(m.order))
	copy(out, m.order)
	return out
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() int {
	return m.threshold
}

// Score returns the keyword score of item for h. Holidays without patterns
// always score 0.
func (m *Matcher) Score(item media.Item, h holiday.Holiday) int {
	ch, ok := m.holidays[h]
	if !ok || item == nil {
		return 0
	}
	title, summary := item.Meta().Title, item.Meta().Summary

	for _, re := range m.exclude {
		if re.MatchString(title) || re.MatchString(summary) {
			return 0
		}
	}

	// Another holiday's strong indicator in the title suppresses this one.
	// The summary is deliberately not consulted.
	for _, other := range m.order {
		if other == h {
			continue
		}
		for _, re := range m.holidays[other].strong {
			if re.MatchString(title) {
				return 0
			}
		}
	}

	score := 0
	for _, re := range ch.include {
		score += fieldPoints(re, title, summary, includeTitlePoints, includeSummaryPoints)
	}
	score += ch.corpus.score(title, summary)
	for _, re := range ch.strong {
		score += fieldPoints(re, title, summary, strongTitlePoints, strongSummaryPoints)
	}
	return score
}

func fieldPoints(re *regexp.Regexp, title, summary string, titlePts, summaryPts int) int {
	switch {
	case re.MatchString(title):
		return titlePts
	case re.MatchString(summary):
		return summaryPts
	default:
		return 0
	}
}

// IsRequired reports whether item is a movie on h's required-title list.
// Titles compare after normalization; years may differ by one. A movie
// without a year never qualifies.
func (m *Matcher) IsRequired(item media.Item, h holiday.Holiday) bool {
	mv, ok := item.(*media.Movie)
	if !ok {
		return false
	}
	ch, ok := m.holidays[h]
	if !ok || len(ch.required) == 0 {
		return false
	}
	title := normalizeTitle(mv.Title)
	if title == "" || mv.Year == 0 {
		return false
	}
	for _, rt := range ch.required {
		if rt.title != title {
			continue
		}
		if abs(mv.Year-rt.year) <= requiredYearSlack {
			return true
		}
	}
	return false
}

// IsMatch reports whether item matches h at the configured threshold.
func (m *Matcher) IsMatch(item media.Item, h holiday.Holiday) bool {
	return m.isMatch(item, h, m.threshold)
}

func (m *Matcher) isMatch(item media.Item, h holiday.Holiday, threshold int) bool {
	return m.IsRequired(item, h) || m.Score(item, h) >= threshold
}

// FindMatches runs FindMatchesWithThreshold at the configured threshold.
func (m *Matcher) FindMatches(items []media.Item, holidays ...holiday.Holiday) []HolidayMatch {
	return m.FindMatchesWithThreshold(items, m.threshold, holidays...)
}

// FindMatchesWithThreshold groups matching items per holiday. With no
// holidays given every holiday in the library is checked. Holidays are
// visited in library order and items keep their input order; holidays with
// no matches are omitted.
func (m *Matcher) FindMatchesWithThreshold(items []media.Item, threshold int, holidays ...holiday.Holiday) []HolidayMatch {
	order := m.order
	if len(holidays) > 0 {
		wanted := holiday.NewSet(holidays...)
		order = make([]holiday.Holiday, 0, len(holidays))
		for _, h := range m.order {
			if wanted.Has(h) {
				order = append(order, h)
			}
		}
	}

	var out []HolidayMatch
	for _, h := range order {
		var matched []media.Item
		for _, item := range items {
			if item != nil && m.isMatch(item, h, threshold) {
				matched = append(matched, item)
			}
		}
		if len(matched) == 0 {
			continue
		}
		episodes, movies := media.Split(matched)
		out = append(out, HolidayMatch{Holiday: h, Episodes: episodes, Movies: movies})
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// corpusIndex scores supplementary titles. An Aho-Corasick automaton over the
// folded titles narrows the candidates before the per-title regexes run.
type corpusIndex struct {
	ac        *ahocorasick.Matcher
	needles   [][]int // automaton index -> pattern indexes
	patterns  []*regexp.Regexp
	unindexed []int
}

func newCorpusIndex(titles []string) *corpusIndex {
	idx := &corpusIndex{}
	byNeedle := make(map[string]int)
	var dict []string
	seen := make(map[string]struct{}, len(titles))

	for _, title := range titles {
		re, err := titlePattern(title)
		if err != nil {
			continue
		}
		if _, dup := seen[re.String()]; dup {
			continue
		}
		seen[re.String()] = struct{}{}
		pi := len(idx.patterns)
		idx.patterns = append(idx.patterns, re)

		needle := foldText(title)
		if needle == "" {
			idx.unindexed = append(idx.unindexed, pi)
			continue
		}
		ni, ok := byNeedle[needle]
		if !ok {
			ni = len(dict)
			byNeedle[needle] = ni
			dict = append(dict, needle)
			idx.needles = append(idx.needles, nil)
		}
		idx.needles[ni] = append(idx.needles[ni], pi)
	}
	if len(dict) > 0 {
		idx.ac = ahocorasick.NewStringMatcher(dict)
	}
	return idx
}

func (c *corpusIndex) candidates(text string) map[int]struct{} {
	out := make(map[int]struct{})
	if text == "" {
		return out
	}
	for _, pi := range c.unindexed {
		out[pi] = struct{}{}
	}
	if c.ac == nil {
		return out
	}
	for _, ni := range c.ac.Match([]byte(foldText(text))) {
		if ni < 0 || ni >= len(c.needles) {
			continue
		}
		for _, pi := range c.needles[ni] {
			out[pi] = struct{}{}
		}
	}
	return out
}

func (c *corpusIndex) score(title, summary string) int {
	if c == nil || len(c.patterns) == 0 {
		return 0
	}
	inTitle := c.candidates(title)
	inSummary := c.candidates(summary)

	score := 0
	for pi, re := range c.patterns {
		_, t := inTitle[pi]
		_, s := inSummary[pi]
		switch {
		case t && re.MatchString(title):
			score += includeTitlePoints
		case s && re.MatchString(summary):
			score += includeSummaryPoints
		}
	}
	return score
}
