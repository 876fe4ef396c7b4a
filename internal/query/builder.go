// Package query turns a metric selection into Cube SQL API statements.
package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/splax/cubedash/internal/metric"
)

// DateLayout is how range bounds are written into SQL.
const DateLayout = "2006-01-02"

// ErrInvalidMeasure is returned when a measure name is not a plain identifier.
var ErrInvalidMeasure = errors.New("query: invalid measure name")

var measurePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Parameters is one user interaction's query input. Start is inclusive, End
// exclusive; Start <= End is not enforced.
type Parameters struct {
	Measure string
	Start   time.Time
	End     time.Time
	Grain   Granularity
}

// Statement is a parameterized query plus the literal form shown to users.
type Statement struct {
	SQL     string
	Args    []any
	Measure string
	literal string
}

// Literal returns the statement with bounds written inline, as displayed.
func (s Statement) Literal() string {
	return s.literal
}

// Build returns the literal SQL for measure over [start, end) truncated to
// grain. Dates are interpolated directly; use Compile for anything that is
// not a trusted date value.
func Build(measure string, start, end time.Time, grain Granularity) string {
	return render(measure, grain,
		"'"+start.Format(DateLayout)+"'",
		"'"+end.Format(DateLayout)+"'")
}

// Compile validates p and returns the bind-parameter form of Build. The
// measure is checked against an identifier pattern because MEASURE() cannot
// take a bind parameter.
func Compile(p Parameters) (Statement, error) {
	if !measurePattern.MatchString(p.Measure) {
		return Statement{}, fmt.Errorf("%w: %q", ErrInvalidMeasure, p.Measure)
	}
	if !p.Grain.Valid() {
		return Statement{}, fmt.Errorf("%w: %d", ErrInvalidGranularity, int(p.Grain))
	}
	return Statement{
		SQL:     render(p.Measure, p.Grain, "$1", "$2"),
		Args:    []any{p.Start.Format(DateLayout), p.End.Format(DateLayout)},
		Measure: p.Measure,
		literal: Build(p.Measure, p.Start, p.End, p.Grain),
	}, nil
}

func render(measure string, grain Granularity, from, to string) string {
	var b strings.Builder
	b.WriteString("SELECT\n")
	b.WriteString("    date_trunc('" + grain.Lower() + "', time),\n")
	b.WriteString("    MEASURE(" + measure + ")\n")
	b.WriteString("FROM " + metric.CubeName + "\n")
	b.WriteString("WHERE time >= " + from + " AND time < " + to)
	return b.String()
}
