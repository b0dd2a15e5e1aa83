// Package patterns holds the static holiday pattern library: include
// keywords, strong indicators, cross-holiday excludes and required titles.
//
// Patterns are Go regular expressions matched case-insensitively against
// title and summary text.
package patterns

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/holidarr/holidarr/internal/holiday"
)

// RequiredTitle is a canonical movie that always matches its holiday.
type RequiredTitle struct {
	Title string `yaml:"title" json:"title"`
	Year  int    `yaml:"year" json:"year"`
}

// HolidayPatterns is the pattern set for a single holiday.
type HolidayPatterns struct {
	Include  []string        `yaml:"include" json:"include"`
	Strong   []string        `yaml:"strong" json:"strong"`
	Required []RequiredTitle `yaml:"required" json:"required"`
}

// Library is the full pattern configuration.
type Library struct {
	Holidays map[holiday.Holiday]HolidayPatterns
	Exclude  []string
}

// Default returns a copy of the curated library.
func Default() Library {
	lib := Library{
		Holidays: make(map[holiday.Holiday]HolidayPatterns, len(curated)),
		Exclude:  slices.Clone(curatedExclude),
	}
	for h, p := range curated {
		lib.Holidays[h] = HolidayPatterns{
			Include:  slices.Clone(p.Include),
			Strong:   slices.Clone(p.Strong),
			Required: slices.Clone(p.Required),
		}
	}
	return lib.normalized()
}

// Order returns the holidays present in the library in stable enum order.
func (l Library) Order() []holiday.Holiday {
	out := make([]holiday.Holiday, 0, len(l.Holidays))
	for _, h := range holiday.All() {
		if _, ok := l.Holidays[h]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Validate compiles every pattern and reports the first failure.
func (l Library) Validate() error {
	for _, pat := range l.Exclude {
		if _, err := regexp.Compile(pat); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", pat, err)
		}
	}
	for _, h := range l.Order() {
		p := l.Holidays[h]
		for _, pat := range append(slices.Clone(p.Include), p.Strong...) {
			if _, err := regexp.Compile(pat); err != nil {
				return fmt.Errorf("%s pattern %q: %w", h, pat, err)
			}
		}
		for _, rt := range p.Required {
			if rt.Title == "" {
				return fmt.Errorf("%s: required title with empty name", h)
			}
			if rt.Year <= 0 {
				return fmt.Errorf("%s: required title %q has no year", h, rt.Title)
			}
		}
	}
	return nil
}

// normalized guarantees every strong indicator is also an include pattern,
// so a strong hit always earns the base include points as well.
func (l Library) normalized() Library {
	for h, p := range l.Holidays {
		for _, s := range p.Strong {
			if !slices.Contains(p.Include, s) {
				p.Include = append(p.Include, s)
			}
		}
		l.Holidays[h] = p
	}
	return l
}
