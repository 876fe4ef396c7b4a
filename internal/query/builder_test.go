package query

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildMonthlyDailyActive(t *testing.T) {
	sql := Build("daily_active", date(2019, time.February, 1), date(2020, time.February, 1), Month)

	fragments := []string{
		"date_trunc('month', time)",
		"MEASURE(daily_active)",
		"FROM ActiveUsers",
		"time >= '2019-02-01'",
		"time < '2020-02-01'",
	}
	last := -1
	for _, frag := range fragments {
		idx := strings.Index(sql, frag)
		if idx < 0 {
			t.Fatalf("missing %q in:\n%s", frag, sql)
		}
		if idx <= last {
			t.Fatalf("fragment %q out of order in:\n%s", frag, sql)
		}
		last = idx
	}
}

func TestBuildExactText(t *testing.T) {
	got := Build("weekly_active", date(2020, time.January, 1), date(2020, time.March, 1), Week)
	want := "SELECT\n" +
		"    date_trunc('week', time),\n" +
		"    MEASURE(weekly_active)\n" +
		"FROM ActiveUsers\n" +
		"WHERE time >= '2020-01-01' AND time < '2020-03-01'"
	if got != want {
		t.Fatalf("unexpected sql:\n%s\nwant:\n%s", got, want)
	}
}

func TestBuildLowercasesGranularity(t *testing.T) {
	cases := map[Granularity]string{
		Day:   "date_trunc('day', time)",
		Week:  "date_trunc('week', time)",
		Month: "date_trunc('month', time)",
		Year:  "date_trunc('year', time)",
	}
	for grain, frag := range cases {
		sql := Build("monthly_active", date(2019, 1, 1), date(2019, 2, 1), grain)
		if !strings.Contains(sql, frag) {
			t.Fatalf("%s: expected %q in %s", grain, frag, sql)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	a := Build("dau_to_mau", date(2019, 2, 1), date(2020, 2, 1), Day)
	b := Build("dau_to_mau", date(2019, 2, 1), date(2020, 2, 1), Day)
	if a != b {
		t.Fatalf("expected identical sql, got:\n%s\n%s", a, b)
	}
}

func TestBuildKeepsInvertedRange(t *testing.T) {
	sql := Build("daily_active", date(2021, 1, 1), date(2020, 1, 1), Month)
	if !strings.Contains(sql, "time >= '2021-01-01' AND time < '2020-01-01'") {
		t.Fatalf("inverted range should pass through untouched: %s", sql)
	}
}

func TestCompileUsesBindParameters(t *testing.T) {
	p := Parameters{
		Measure: "daily_active",
		Start:   date(2019, time.February, 1),
		End:     date(2020, time.February, 1),
		Grain:   Month,
	}
	stmt, err := Compile(p)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !strings.Contains(stmt.SQL, "WHERE time >= $1 AND time < $2") {
		t.Fatalf("expected placeholders, got %s", stmt.SQL)
	}
	if strings.Contains(stmt.SQL, "2019-02-01") {
		t.Fatalf("dates must not be inlined: %s", stmt.SQL)
	}
	if len(stmt.Args) != 2 || stmt.Args[0] != "2019-02-01" || stmt.Args[1] != "2020-02-01" {
		t.Fatalf("unexpected args %v", stmt.Args)
	}
	if stmt.Literal() != Build(p.Measure, p.Start, p.End, p.Grain) {
		t.Fatalf("literal differs from Build:\n%s", stmt.Literal())
	}
}

func TestCompileRejectsInjectedMeasure(t *testing.T) {
	for _, measure := range []string{"", "daily_active); DROP TABLE orders; --", "1abc", "a b"} {
		_, err := Compile(Parameters{Measure: measure, Grain: Day})
		if !errors.Is(err, ErrInvalidMeasure) {
			t.Fatalf("measure %q: expected ErrInvalidMeasure, got %v", measure, err)
		}
	}
}

func TestCompileRejectsUnknownGranularity(t *testing.T) {
	_, err := Compile(Parameters{Measure: "daily_active", Grain: Granularity(42)})
	if !errors.Is(err, ErrInvalidGranularity) {
		t.Fatalf("expected ErrInvalidGranularity, got %v", err)
	}
}

func TestParseGranularity(t *testing.T) {
	for _, raw := range []string{"day", "Day", " DAY "} {
		g, err := ParseGranularity(raw)
		if err != nil || g != Day {
			t.Fatalf("parse %q: got %v, %v", raw, g, err)
		}
	}
	if _, err := ParseGranularity("quarter"); !errors.Is(err, ErrInvalidGranularity) {
		t.Fatalf("expected ErrInvalidGranularity, got %v", err)
	}
	var g Granularity
	if err := g.UnmarshalText([]byte("year")); err != nil || g != Year {
		t.Fatalf("unmarshal: %v %v", g, err)
	}
	text, err := Month.MarshalText()
	if err != nil || string(text) != "Month" {
		t.Fatalf("marshal: %s %v", text, err)
	}
}

func TestBucketsEstimate(t *testing.T) {
	from, to := date(2019, time.February, 1), date(2020, time.February, 1)
	cases := []struct {
		grain Granularity
		want  int
	}{
		{Day, 365},
		{Week, 53},
		{Month, 13},
		{Year, 1},
	}
	for _, tc := range cases {
		if got := Buckets(from, to, tc.grain); got != tc.want {
			t.Fatalf("%s: expected %d buckets, got %d", tc.grain, tc.want, got)
		}
	}
	if got := Buckets(to, from, Day); got != 0 {
		t.Fatalf("inverted range should have no buckets, got %d", got)
	}
	if got := Buckets(from, from.Add(time.Hour), Month); got != 1 {
		t.Fatalf("sub-day range should be one bucket, got %d", got)
	}
	if got := Buckets(from, to, Granularity(9)); got != 0 {
		t.Fatalf("unknown grain should have no buckets, got %d", got)
	}
}
