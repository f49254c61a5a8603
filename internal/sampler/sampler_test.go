package sampler

import (
	"errors"
	"math/big"
	"math/rand"
	"strings"
	"testing"
)

// cycleSource replays fixed floats, including very small ones.
type cycleSource struct {
	floats []float64
	next   int
}

func (c *cycleSource) Float64() float64 {
	f := c.floats[c.next%len(c.floats)]
	c.next++
	return f
}

func (c *cycleSource) Intn(n int) int { return n - 1 }

func pow2(exp int64) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), uint(exp))
}

func mustSampler(t *testing.T, lower, upper *big.Int, jitter int, src Source) *Sampler {
	t.Helper()
	rng, err := NewRange(lower, upper)
	if err != nil {
		t.Fatalf("NewRange() error = %v", err)
	}
	s, err := New(Options{Range: rng, MaxLengthJitter: jitter, Source: src})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNewRangeRejectsInvalidBounds(t *testing.T) {
	tests := []struct {
		name  string
		lower *big.Int
		upper *big.Int
		want  error
	}{
		{"negative lower", big.NewInt(-1), big.NewInt(10), ErrNegativeBound},
		{"equal bounds", big.NewInt(5), big.NewInt(5), ErrEmptyRange},
		{"inverted bounds", big.NewInt(10), big.NewInt(5), ErrEmptyRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRange(tt.lower, tt.upper)
			if !errors.Is(err, tt.want) {
				t.Fatalf("NewRange() error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := NewRange(nil, big.NewInt(1)); err == nil {
		t.Fatal("expected error for nil bound")
	}
}

func TestNewRejectsZeroRange(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for zero range")
	}
}

func TestNewRangeCopiesBounds(t *testing.T) {
	lower := big.NewInt(3)
	rng, err := NewRange(lower, big.NewInt(9))
	if err != nil {
		t.Fatalf("NewRange() error = %v", err)
	}
	lower.SetInt64(100)
	if rng.Lower.Int64() != 3 {
		t.Fatalf("range shares caller's bound: lower = %s", rng.Lower)
	}
}

func TestSampleStaysWithinRange(t *testing.T) {
	tests := []struct {
		name   string
		lower  *big.Int
		upper  *big.Int
		jitter int
		trials int
	}{
		{"unit span", big.NewInt(0), big.NewInt(1), 0, 2000},
		{"small span", big.NewInt(10), big.NewInt(1000), 2, 5000},
		{"jitter wider than span digits", big.NewInt(7), big.NewInt(99), DefaultMaxLengthJitter, 5000},
		{"word sized", pow2(60), pow2(70), 5, 2000},
		{"default bounds", pow2(68), pow2(90000), DefaultMaxLengthJitter, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustSampler(t, tt.lower, tt.upper, tt.jitter, rand.New(rand.NewSource(42)))
			for i := 0; i < tt.trials; i++ {
				v := s.Sample()
				if v.Cmp(tt.lower) < 0 || v.Cmp(tt.upper) > 0 {
					t.Fatalf("trial %d: sample %s outside [%s, %s]", i, v, tt.lower, tt.upper)
				}
			}
		})
	}
}

func TestSampleSpreadsAcrossRange(t *testing.T) {
	s := mustSampler(t, big.NewInt(0), big.NewInt(100), 0, rand.New(rand.NewSource(7)))
	low, high := false, false
	for i := 0; i < 20000; i++ {
		v := s.Sample().Int64()
		if v < 10 {
			low = true
		}
		if v > 90 {
			high = true
		}
	}
	if !low || !high {
		t.Fatalf("samples not spread across range: sawLow=%v sawHigh=%v", low, high)
	}
}

func TestSampleIsReproducibleWithSeed(t *testing.T) {
	rng, err := NewRange(pow2(68), pow2(512))
	if err != nil {
		t.Fatalf("NewRange() error = %v", err)
	}
	a, err := New(Options{Range: rng, MaxLengthJitter: 10, Seed: 99})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	b, err := New(Options{Range: rng, MaxLengthJitter: 10, Seed: 99})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		if x, y := a.Sample(), b.Sample(); x.Cmp(y) != 0 {
			t.Fatalf("draw %d differs: %s vs %s", i, x, y)
		}
	}
}

func TestDigitsContainOnlyDecimalDigits(t *testing.T) {
	src := &cycleSource{floats: []float64{1.5e-07, 0, 0.25, 3e-10, 0.9999999999999999, 1e-05}}
	s := mustSampler(t, big.NewInt(0), pow2(256), 0, src)

	for _, n := range []int{1, 17, 50, 500} {
		got := s.digits(n)
		if len(got) != n {
			t.Fatalf("digits(%d) length = %d", n, len(got))
		}
		for i, c := range got {
			if c < '0' || c > '9' {
				t.Fatalf("digits(%d)[%d] = %q, want decimal digit", n, i, c)
			}
		}
	}
}

func TestSampleWithExponentFloats(t *testing.T) {
	lower, upper := big.NewInt(1000), pow2(128)
	src := &cycleSource{floats: []float64{2.5e-08, 1e-300, 0.5, 4.9e-324}}
	s := mustSampler(t, lower, upper, 3, src)
	for i := 0; i < 100; i++ {
		v := s.Sample()
		if v.Cmp(lower) < 0 || v.Cmp(upper) > 0 {
			t.Fatalf("sample %s outside range", v)
		}
	}

	if got := fractionDigits(4.9e-324); len(got) != 324 || strings.Trim(got, "0") != "5" {
		t.Errorf("fractionDigits(4.9e-324) = %d digits, trimmed %q", len(got), strings.Trim(got, "0"))
	}
}

func TestFractionDigits(t *testing.T) {
	tests := []struct {
		input float64
		want  string
	}{
		{0.25, "25"},
		{0.5, "5"},
		{1.5e-07, "00000015"},
		{2.25e-10, "000000000225"},
		{1e-07, "0000001"},
		{0.9999999999999999, "9999999999999999"},
		{0, ""},
		{3, ""},
	}
	for _, tt := range tests {
		if got := fractionDigits(tt.input); got != tt.want {
			t.Errorf("fractionDigits(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestDigitLengthStaysPositive(t *testing.T) {
	s := mustSampler(t, big.NewInt(0), big.NewInt(999), 50, rand.New(rand.NewSource(3)))
	if s.SpanDigits() != 3 {
		t.Fatalf("SpanDigits() = %d, want 3", s.SpanDigits())
	}
	seenShort := false
	for i := 0; i < 1000; i++ {
		n := s.digitLength()
		if n < 1 || n > 3 {
			t.Fatalf("digitLength() = %d, want within [1, 3]", n)
		}
		if n < 3 {
			seenShort = true
		}
	}
	if !seenShort {
		t.Fatal("expected some perturbed lengths")
	}
}

func TestDigitLengthWithoutJitter(t *testing.T) {
	s := mustSampler(t, big.NewInt(0), pow2(100), 0, rand.New(rand.NewSource(3)))
	for i := 0; i < 100; i++ {
		if n := s.digitLength(); n != s.SpanDigits() {
			t.Fatalf("digitLength() = %d, want %d", n, s.SpanDigits())
		}
	}
}
