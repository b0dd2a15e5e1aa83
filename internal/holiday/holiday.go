// Package holiday defines the closed set of recognized holidays and the
// classification value shared by the matcher, the AI classifier and the cache.
package holiday

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownHoliday is returned when a name or token does not map to a Holiday.
var ErrUnknownHoliday = errors.New("unknown holiday")

// Holiday is a recognized holiday label. The string value is persisted and
// used as a lookup key, so existing values must never change.
type Holiday string

const (
	Christmas       Holiday = "Christmas"
	Halloween       Holiday = "Halloween"
	Thanksgiving    Holiday = "Thanksgiving"
	ValentinesDay   Holiday = "Valentine's Day"
	Easter          Holiday = "Easter"
	NewYears        Holiday = "New Year's"
	IndependenceDay Holiday = "Independence Day"
	StPatricksDay   Holiday = "St. Patrick's Day"
	Hanukkah        Holiday = "Hanukkah"
	Kwanzaa         Holiday = "Kwanzaa"
	MothersDay      Holiday = "Mother's Day"
	FathersDay      Holiday = "Father's Day"
	LaborDay        Holiday = "Labor Day"
	MemorialDay     Holiday = "Memorial Day"
	VeteransDay     Holiday = "Veterans Day"
	PresidentsDay   Holiday = "Presidents' Day"
	MLKDay          Holiday = "Martin Luther King Jr. Day"
	Passover        Holiday = "Passover"
	DayOfTheDead    Holiday = "Day of the Dead"
	LunarNewYear    Holiday = "Lunar New Year"
	GroundhogDay    Holiday = "Groundhog Day"
	AprilFoolsDay   Holiday = "April Fools' Day"
	CincoDeMayo     Holiday = "Cinco de Mayo"
	Diwali          Holiday = "Diwali"
)

// all is ordered; iteration over holidays anywhere in the module follows it.
var all = []Holiday{
	Christmas,
	Halloween,
	Thanksgiving,
	ValentinesDay,
	Easter,
	NewYears,
	IndependenceDay,
	StPatricksDay,
	Hanukkah,
	Kwanzaa,
	MothersDay,
	FathersDay,
	LaborDay,
	MemorialDay,
	VeteransDay,
	PresidentsDay,
	MLKDay,
	Passover,
	DayOfTheDead,
	LunarNewYear,
	GroundhogDay,
	AprilFoolsDay,
	CincoDeMayo,
	Diwali,
}

// tokens maps the lowercase tokens the classification backend is allowed to
// emit onto holidays.
var tokens = map[string]Holiday{
	"christmas":       Christmas,
	"halloween":       Halloween,
	"thanksgiving":    Thanksgiving,
	"valentines":      ValentinesDay,
	"easter":          Easter,
	"newyears":        NewYears,
	"independenceday": IndependenceDay,
	"stpatricks":      StPatricksDay,
	"hanukkah":        Hanukkah,
	"kwanzaa":         Kwanzaa,
	"mothersday":      MothersDay,
	"fathersday":      FathersDay,
	"laborday":        LaborDay,
	"memorialday":     MemorialDay,
	"veteransday":     VeteransDay,
	"presidentsday":   PresidentsDay,
	"mlkday":          MLKDay,
	"passover":        Passover,
	"dayofthedead":    DayOfTheDead,
	"lunarnewyear":    LunarNewYear,
	"groundhogday":    GroundhogDay,
	"aprilfools":      AprilFoolsDay,
	"cincodemayo":     CincoDeMayo,
	"diwali":          Diwali,
}

var tokenByHoliday = func() map[Holiday]string {
	m := make(map[Holiday]string, len(tokens))
	for tok, h := range tokens {
		m[h] = tok
	}
	return m
}()

var indexByHoliday = func() map[Holiday]int {
	m := make(map[Holiday]int, len(all))
	for i, h := range all {
		m[h] = i
	}
	return m
}()

// indexOf returns the position in All, or len(all) for unknown values.
func indexOf(h Holiday) int {
	if i, ok := indexByHoliday[h]; ok {
		return i
	}
	return len(all)
}

// Curated is the subset with hand-tuned keyword weights in the pattern library.
var Curated = []Holiday{Christmas, Halloween, Thanksgiving, ValentinesDay}

// All returns every recognized holiday in stable order.
func All() []Holiday {
	out := make([]Holiday, len(all))
	copy(out, all)
	return out
}

// Tokens returns the lowercase backend tokens in the same order as All.
func Tokens() []string {
	out := make([]string, 0, len(all))
	for _, h := range all {
		out = append(out, tokenByHoliday[h])
	}
	return out
}

// String implements fmt.Stringer.
func (h Holiday) String() string {
	return string(h)
}

// Token returns the lowercase token used in backend prompts and responses.
func (h Holiday) Token() string {
	return tokenByHoliday[h]
}

// Valid reports whether h is one of the recognized holidays.
func (h Holiday) Valid() bool {
	_, ok := tokenByHoliday[h]
	return ok
}

// FromToken maps a backend token onto a Holiday.
func FromToken(token string) (Holiday, bool) {
	h, ok := tokens[strings.ToLower(strings.TrimSpace(token))]
	return h, ok
}

// Parse accepts either the display name (case-insensitive) or the token.
func Parse(s string) (Holiday, error) {
	trimmed := strings.TrimSpace(s)
	if h, ok := FromToken(trimmed); ok {
		return h, nil
	}
	for _, h := range all {
		if strings.EqualFold(string(h), trimmed) {
			return h, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHoliday, s)
}

// ParseAll parses a list of names, failing on the first unknown entry.
func ParseAll(names []string) ([]Holiday, error) {
	out := make([]Holiday, 0, len(names))
	for _, name := range names {
		h, err := Parse(name)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// Set is a membership set of holidays.
type Set map[Holiday]struct{}

// NewSet builds a Set from the given holidays.
func NewSet(hs ...Holiday) Set {
	s := make(Set, len(hs))
	for _, h := range hs {
		s[h] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set contains nothing.
func (s Set) Has(h Holiday) bool {
	_, ok := s[h]
	return ok
}
