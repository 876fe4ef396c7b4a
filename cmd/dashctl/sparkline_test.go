package main

import (
	"math"
	"testing"
	"unicode/utf8"
)

func TestSparklineScales(t *testing.T) {
	got := sparkline([]float64{0, 5, 10}, 80)
	if got != "▁▄█" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestSparklineFlat(t *testing.T) {
	if got := sparkline([]float64{3, 3, 3}, 80); got != "▁▁▁" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := sparkline(nil, 80); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
}

func TestSparklineFitsWidth(t *testing.T) {
	vals := make([]float64, 365)
	for i := range vals {
		vals[i] = float64(i)
	}
	got := sparkline(vals, 40)
	if n := utf8.RuneCountInString(got); n != 40 {
		t.Fatalf("expected 40 columns, got %d", n)
	}
}

func TestFormatValue(t *testing.T) {
	if got := formatValue(0.1234, "percentage"); got != "12.34%" {
		t.Fatalf("unexpected percentage %q", got)
	}
	if got := formatValue(1520, "plain"); got != "1520" {
		t.Fatalf("unexpected plain %q", got)
	}
}

func TestSparklineToleratesNonFinite(t *testing.T) {
	for _, vals := range [][]float64{
		{1, math.Inf(1), 3},
		{math.Inf(-1), 2, 3},
		{1, math.NaN(), 3},
	} {
		got := sparkline(vals, 80)
		if n := utf8.RuneCountInString(got); n != len(vals) {
			t.Fatalf("%v: expected %d ticks, got %q", vals, len(vals), got)
		}
	}
	if got := tick(5, 0, 1, 7); got != 7 {
		t.Fatalf("above range should clamp to top, got %d", got)
	}
	if got := tick(-5, 0, 1, 7); got != 0 {
		t.Fatalf("below range should clamp to bottom, got %d", got)
	}
}
