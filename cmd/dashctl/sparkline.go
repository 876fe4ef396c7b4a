package main

import (
	"math"
	"strings"
)

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// sparkline renders values as block characters, downsampling by averaging
// buckets when there are more values than columns.
func sparkline(vals []float64, width int) string {
	if len(vals) == 0 || width <= 0 {
		return ""
	}
	if len(vals) > width {
		vals = downsample(vals, width)
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	var b strings.Builder
	top := len(sparkTicks) - 1
	for _, v := range vals {
		b.WriteRune(sparkTicks[tick(v, lo, hi, top)])
	}
	return b.String()
}

func downsample(vals []float64, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * len(vals) / n
		end := (i + 1) * len(vals) / n
		if end <= start {
			end = start + 1
		}
		var sum float64
		for _, v := range vals[start:end] {
			sum += v
		}
		out[i] = sum / float64(end-start)
	}
	return out
}

// tick maps v onto [0, top]. Non-finite inputs land on the bottom tick.
func tick(v, lo, hi float64, top int) int {
	if !(hi > lo) {
		return 0
	}
	f := (v - lo) / (hi - lo) * float64(top)
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > float64(top):
		return top
	default:
		return int(f)
	}
}
