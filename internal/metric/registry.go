// Package metric holds the fixed set of business metrics the dashboard offers.
package metric

import "fmt"

// Definition describes one selectable metric and the Cube measure behind it.
type Definition struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Measure     string `json:"measure"`
	Description string `json:"description"`
}

// UnknownMetricError is returned when a key is not part of the registry.
type UnknownMetricError struct {
	Key string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("metric: unknown metric %q", e.Key)
}

// Registry is an immutable key -> Definition table with a stable display order.
type Registry struct {
	order []string
	byKey map[string]Definition
}

// NewRegistry builds a registry from defs in display order. Duplicate keys
// are rejected.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(defs)),
		byKey: make(map[string]Definition, len(defs)),
	}
	for _, def := range defs {
		if def.Key == "" {
			return nil, fmt.Errorf("metric: empty key for measure %q", def.Measure)
		}
		if _, dup := r.byKey[def.Key]; dup {
			return nil, fmt.Errorf("metric: duplicate key %q", def.Key)
		}
		r.order = append(r.order, def.Key)
		r.byKey[def.Key] = def
	}
	return r, nil
}

var defaultRegistry = mustRegistry(
	Definition{
		Key:         "Daily Active",
		Title:       "Daily Active",
		Measure:     "daily_active",
		Description: "The number of unique users, who placed at least one order in the last 24 hours.",
	},
	Definition{
		Key:         "Weekly Active",
		Title:       "Weekly Active",
		Measure:     "weekly_active",
		Description: "The number of unique users, who placed at least one order in the last 7 days.",
	},
	Definition{
		Key:         "Monthly Active",
		Title:       "Monthly Active",
		Measure:     "monthly_active",
		Description: "The number of unique users, who placed at least one order in the last 28 days.",
	},
	Definition{
		Key:         "DAU / MAU",
		Title:       "DAU / MAU",
		Measure:     "dau_to_mau",
		Description: "The ratio of daily active users over monthly active users. Expressed as a percentage; rounded to 2 decimal places.",
	},
)

func mustRegistry(defs ...Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the registry of the four active-user metrics.
func Default() *Registry {
	return defaultRegistry
}

// Lookup returns the definition for key.
func (r *Registry) Lookup(key string) (Definition, error) {
	def, ok := r.byKey[key]
	if !ok {
		return Definition{}, &UnknownMetricError{Key: key}
	}
	return def, nil
}

// Keys returns the metric keys in display order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Definitions returns every definition in display order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.byKey[key])
	}
	return out
}

// DefaultKey is the metric preselected on first load.
func (r *Registry) DefaultKey() string {
	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}
