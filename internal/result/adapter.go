// Package result coerces raw Cube rows into a chartable time series.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RatioMeasure is the only measure charted on a percentage axis.
const RatioMeasure = "dau_to_mau"

// AxisFormat selects how the Y axis labels values.
type AxisFormat string

const (
	FormatPlain      AxisFormat = "plain"
	FormatPercentage AxisFormat = "percentage"
)

// RawRow is one (time, value) row as handed back by the SQL driver.
type RawRow struct {
	Time  any
	Value any
}

// Point is one coerced sample.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Series is an ordered run of points for a single measure.
type Series struct {
	Measure string     `json:"measure"`
	Format  AxisFormat `json:"format"`
	Points  []Point    `json:"points"`
}

// MalformedRowError reports a row whose time or value could not be coerced.
type MalformedRowError struct {
	Row    int
	Column string
	Value  any
	Err    error
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("result: row %d: malformed %s %v: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

var (
	errNull      = errors.New("null value")
	errNonFinite = errors.New("non-finite value")
)

// IsPercentage reports whether measure is charted on a percentage axis.
func IsPercentage(measure string) bool {
	return measure == RatioMeasure
}

// Adapt coerces rows into a Series in input order. A single malformed row
// fails the whole call.
func Adapt(rows []RawRow, measure string) (Series, error) {
	series := Series{
		Measure: measure,
		Format:  FormatPlain,
		Points:  make([]Point, 0, len(rows)),
	}
	if IsPercentage(measure) {
		series.Format = FormatPercentage
	}
	for i, row := range rows {
		ts, err := coerceTime(row.Time)
		if err != nil {
			return Series{}, &MalformedRowError{Row: i, Column: "time", Value: row.Time, Err: err}
		}
		value, err := coerceFloat(row.Value)
		if err == nil && (math.IsNaN(value) || math.IsInf(value, 0)) {
			err = errNonFinite
		}
		if err != nil {
			return Series{}, &MalformedRowError{Row: i, Column: measure, Value: row.Value, Err: err}
		}
		series.Points = append(series.Points, Point{Time: ts, Value: value})
	}
	return series, nil
}

func coerceTime(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, errNull
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, errNull
		}
		return *v, nil
	case string:
		return parseTime(v)
	case []byte:
		return parseTime(string(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported time type %T", raw)
	}
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	return dateparse.ParseIn(s, time.UTC)
}

func coerceFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, errNull
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	default:
		return 0, fmt.Errorf("unsupported value type %T", raw)
	}
}
