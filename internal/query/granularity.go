package query

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Granularity is the time bucket date_trunc groups rows into.
type Granularity int

const (
	Day Granularity = iota + 1
	Week
	Month
	Year
)

// DefaultGranularity is preselected on first load.
const DefaultGranularity = Month

// ErrInvalidGranularity is returned for names outside Day/Week/Month/Year.
var ErrInvalidGranularity = errors.New("query: invalid granularity")

var granularityNames = map[Granularity]string{
	Day:   "Day",
	Week:  "Week",
	Month: "Month",
	Year:  "Year",
}

// Granularities lists every granularity in display order.
func Granularities() []Granularity {
	return []Granularity{Day, Week, Month, Year}
}

// ParseGranularity accepts a granularity name in any letter case.
func ParseGranularity(raw string) (Granularity, error) {
	needle := strings.TrimSpace(raw)
	for _, g := range Granularities() {
		if strings.EqualFold(granularityNames[g], needle) {
			return g, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidGranularity, raw)
}

// Valid reports whether g is one of the four known granularities.
func (g Granularity) Valid() bool {
	_, ok := granularityNames[g]
	return ok
}

func (g Granularity) String() string {
	if name, ok := granularityNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Granularity(%d)", int(g))
}

// Lower is the unit passed to date_trunc.
func (g Granularity) Lower() string {
	return strings.ToLower(g.String())
}

// approxDays is the nominal bucket width used for estimates.
var approxDays = map[Granularity]int{Day: 1, Week: 7, Month: 30, Year: 365}

// Buckets estimates how many rows date_trunc yields for [start, end). A
// partial bucket counts as a whole one; an empty or inverted range yields 0.
func Buckets(start, end time.Time, g Granularity) int {
	width, ok := approxDays[g]
	if !ok || !end.After(start) {
		return 0
	}
	days := int(end.Sub(start).Hours() / 24)
	if days == 0 {
		return 1
	}
	return (days + width - 1) / width
}

// MarshalText encodes the display name.
func (g Granularity) MarshalText() ([]byte, error) {
	if !g.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGranularity, int(g))
	}
	return []byte(g.String()), nil
}

// UnmarshalText accepts any letter case.
func (g *Granularity) UnmarshalText(text []byte) error {
	parsed, err := ParseGranularity(string(text))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
