package dashboard

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/splax/cubedash/internal/metric"
	"github.com/splax/cubedash/internal/query"
)

// ErrInvalidSelection marks user input that could not be parsed.
var ErrInvalidSelection = errors.New("dashboard: invalid selection")

// Selection is the current widget state.
type Selection struct {
	Metric string            `json:"metric"`
	From   time.Time         `json:"from"`
	To     time.Time         `json:"to"`
	Grain  query.Granularity `json:"grain"`
}

// DefaultSelection mirrors the controls' initial values.
func DefaultSelection() Selection {
	return Selection{
		Metric: metric.Default().DefaultKey(),
		From:   time.Date(2019, time.February, 1, 0, 0, 0, 0, time.UTC),
		To:     time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC),
		Grain:  query.DefaultGranularity,
	}
}

// FromDate and ToDate format the bounds for date inputs.
func (s Selection) FromDate() string { return s.From.Format(query.DateLayout) }
func (s Selection) ToDate() string   { return s.To.Format(query.DateLayout) }

// bucketsPerUnit is how many result rows one unit of query budget covers.
const bucketsPerUnit = 50

// Cost is the query budget one render of s spends: a unit for the round trip
// plus one per bucketsPerUnit rows Cube has to aggregate. Daily grain over a
// year costs 8, yearly grain over the same range costs 1.
func (s Selection) Cost() int {
	return 1 + query.Buckets(s.From, s.To, s.Grain)/bucketsPerUnit
}

// Values encodes the selection as query parameters.
func (s Selection) Values() url.Values {
	v := url.Values{}
	v.Set("metric", s.Metric)
	v.Set("from", s.FromDate())
	v.Set("to", s.ToDate())
	v.Set("grain", s.Grain.String())
	return v
}

// ParseSelection reads metric/from/to/grain, filling blanks from
// DefaultSelection. The metric key is not checked here; an inverted range
// is allowed.
func ParseSelection(values url.Values) (Selection, error) {
	sel := DefaultSelection()
	if raw := strings.TrimSpace(values.Get("metric")); raw != "" {
		sel.Metric = raw
	}
	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		from, err := time.Parse(query.DateLayout, raw)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: from %q is not a YYYY-MM-DD date", ErrInvalidSelection, raw)
		}
		sel.From = from
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		to, err := time.Parse(query.DateLayout, raw)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: to %q is not a YYYY-MM-DD date", ErrInvalidSelection, raw)
		}
		sel.To = to
	}
	if raw := strings.TrimSpace(values.Get("grain")); raw != "" {
		grain, err := query.ParseGranularity(raw)
		if err != nil {
			return Selection{}, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
		}
		sel.Grain = grain
	}
	return sel, nil
}
