package patterns

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/holidarr/holidarr/internal/holiday"
)

// File is the on-disk extension format. Holiday keys accept either the
// lowercase token ("valentines") or the display name ("Valentine's Day").
//
//	exclude:
//	  - '\bchristmas island\b'
//	holidays:
//	  easter:
//	    include: ['\beaster\b', '\bbunny\b']
//	    strong: ['\beaster\b']
//	    required:
//	      - title: Hop
//	        year: 2011
type File struct {
	Exclude  []string                   `yaml:"exclude"`
	Holidays map[string]HolidayPatterns `yaml:"holidays"`
}

// ParseFile decodes an extension document.
func ParseFile(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse pattern file: %w", err)
	}
	return f, nil
}

// LoadFile reads an extension file and merges it over the curated library.
// An empty path returns the curated library unchanged.
func LoadFile(path string) (Library, error) {
	lib := Default()
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Library{}, fmt.Errorf("failed to read pattern file: %w", err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return Library{}, err
	}
	merged, err := lib.Merge(f)
	if err != nil {
		return Library{}, fmt.Errorf("%s: %w", path, err)
	}
	return merged, nil
}

// Merge appends the extension's patterns to the library. Duplicate patterns
// are skipped. Holidays outside the curated subset are added.
func (l Library) Merge(f File) (Library, error) {
	out := Library{
		Holidays: make(map[holiday.Holiday]HolidayPatterns, len(l.Holidays)+len(f.Holidays)),
		Exclude:  slices.Clone(l.Exclude),
	}
	for h, p := range l.Holidays {
		out.Holidays[h] = HolidayPatterns{
			Include:  slices.Clone(p.Include),
			Strong:   slices.Clone(p.Strong),
			Required: slices.Clone(p.Required),
		}
	}

	out.Exclude = appendUnique(out.Exclude, f.Exclude...)

	for key, ext := range f.Holidays {
		h, err := holiday.Parse(key)
		if err != nil {
			return Library{}, err
		}
		p := out.Holidays[h]
		p.Include = appendUnique(p.Include, ext.Include...)
		p.Strong = appendUnique(p.Strong, ext.Strong...)
		for _, rt := range ext.Required {
			if !slices.Contains(p.Required, rt) {
				p.Required = append(p.Required, rt)
			}
		}
		out.Holidays[h] = p
	}

	out = out.normalized()
	if err := out.Validate(); err != nil {
		return Library{}, err
	}
	return out, nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}
