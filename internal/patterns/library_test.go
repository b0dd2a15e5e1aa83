package patterns

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holidarr/holidarr/internal/holiday"
)

func TestDefaultLibrary(t *testing.T) {
	lib := Default()
	require.NoError(t, lib.Validate())

	assert.Equal(t, holiday.Curated, lib.Order())
	for _, h := range lib.Order() {
		p := lib.Holidays[h]
		assert.NotEmpty(t, p.Include, h)
		assert.NotEmpty(t, p.Strong, h)
		for _, s := range p.Strong {
			assert.Contains(t, p.Include, s, "strong pattern must also be an include for %s", h)
		}
	}
	assert.NotEmpty(t, lib.Exclude)
}

func TestDefaultReturnsCopy(t *testing.T) {
	a := Default()
	a.Exclude[0] = "mutated"
	p := a.Holidays[holiday.Christmas]
	p.Include[0] = "mutated"

	b := Default()
	assert.NotEqual(t, "mutated", b.Exclude[0])
	assert.NotEqual(t, "mutated", b.Holidays[holiday.Christmas].Include[0])
}

func TestMergeExtension(t *testing.T) {
	f, err := ParseFile([]byte(`
exclude:
  - '\beaster island\b'
holidays:
  easter:
    include: ['\bbunny\b']
    strong: ['\beaster\b']
    required:
      - title: Hop
        year: 2011
  Christmas:
    include: ['\bkrampus\b', '\bchristmas\b']
`))
	require.NoError(t, err)

	lib, err := Default().Merge(f)
	require.NoError(t, err)

	assert.Equal(t, []holiday.Holiday{
		holiday.Christmas, holiday.Halloween, holiday.Thanksgiving, holiday.ValentinesDay, holiday.Easter,
	}, lib.Order())

	easter := lib.Holidays[holiday.Easter]
	assert.ElementsMatch(t, []string{`\bbunny\b`, `\beaster\b`}, easter.Include)
	assert.Equal(t, []RequiredTitle{{Title: "Hop", Year: 2011}}, easter.Required)
	assert.Contains(t, lib.Exclude, `\beaster island\b`)

	xmas := lib.Holidays[holiday.Christmas]
	assert.Contains(t, xmas.Include, `\bkrampus\b`)
	n := 0
	for _, p := range xmas.Include {
		if p == `\bchristmas\b` {
			n++
		}
	}
	assert.Equal(t, 1, n)

	// the receiver is untouched
	assert.False(t, slices.Contains(Default().Holidays[holiday.Christmas].Include, `\bkrampus\b`))
}

func TestMergeRejectsBadInput(t *testing.T) {
	_, err := Default().Merge(File{Holidays: map[string]HolidayPatterns{
		"arbor day": {Include: []string{"tree"}},
	}})
	assert.ErrorIs(t, err, holiday.ErrUnknownHoliday)

	_, err = Default().Merge(File{Exclude: []string{"(unclosed"}})
	assert.Error(t, err)

	_, err = Default().Merge(File{Holidays: map[string]HolidayPatterns{
		"halloween": {Required: []RequiredTitle{{Title: "Hocus Pocus"}}},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no year")
}

func TestLoadFile(t *testing.T) {
	lib, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), lib)

	path := filepath.Join(t.TempDir(), "patterns.yaml")
	require.NoError(t, os.WriteFile(path, []byte("holidays:\n  diwali:\n    strong: ['\\bdiwali\\b']\n"), 0o600))

	lib, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`\bdiwali\b`}, lib.Holidays[holiday.Diwali].Include)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
