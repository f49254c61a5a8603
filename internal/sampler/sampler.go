// Package sampler draws arbitrary-precision integers from a fixed range.
package sampler

import (
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxLengthJitter is the largest number of digits removed from the
// scaling string when a draw is perturbed.
const DefaultMaxLengthJitter = 2600

var (
	ErrNegativeBound = errors.New("range bounds must be non-negative")
	ErrEmptyRange    = errors.New("range upper bound must be greater than lower bound")
)

// Source is the uniform random source a Sampler draws from.
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// Range is an inclusive interval of non-negative integers.
type Range struct {
	Lower *big.Int
	Upper *big.Int
}

// NewRange validates and copies the bounds.
func NewRange(lower, upper *big.Int) (Range, error) {
	if lower == nil || upper == nil {
		return Range{}, fmt.Errorf("range bounds are required")
	}
	if lower.Sign() < 0 || upper.Sign() < 0 {
		return Range{}, ErrNegativeBound
	}
	if upper.Cmp(lower) <= 0 {
		return Range{}, ErrEmptyRange
	}
	return Range{
		Lower: new(big.Int).Set(lower),
		Upper: new(big.Int).Set(upper),
	}, nil
}

// Contains reports whether lower <= v <= upper.
func (r Range) Contains(v *big.Int) bool {
	return v.Cmp(r.Lower) >= 0 && v.Cmp(r.Upper) <= 0
}

// Options configure a Sampler.
type Options struct {
	Range           Range
	MaxLengthJitter int    // 0 disables length perturbation
	Seed            int64  // used when Source is nil; 0 seeds from the clock
	Source          Source // optional injection for tests
}

// Sampler produces near-uniform integers within a Range.
// A Sampler is not safe for concurrent use.
type Sampler struct {
	rng        Range
	span       *big.Int
	spanDigits int
	divisor    *big.Int // 10^spanDigits
	jitter     int
	src        Source
}

// New builds a Sampler. The range is validated again so a zero Range is rejected.
func New(opt Options) (*Sampler, error) {
	rng, err := NewRange(opt.Range.Lower, opt.Range.Upper)
	if err != nil {
		return nil, err
	}
	if opt.MaxLengthJitter < 0 {
		opt.MaxLengthJitter = 0
	}
	src := opt.Source
	if src == nil {
		seed := opt.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		src = rand.New(rand.NewSource(seed))
	}

	span := new(big.Int).Sub(rng.Upper, rng.Lower)
	digits := len(span.String())
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)

	return &Sampler{
		rng:        rng,
		span:       span,
		spanDigits: digits,
		divisor:    divisor,
		jitter:     opt.MaxLengthJitter,
		src:        src,
	}, nil
}

// Range returns a copy of the configured range.
func (s *Sampler) Range() Range {
	return Range{
		Lower: new(big.Int).Set(s.rng.Lower),
		Upper: new(big.Int).Set(s.rng.Upper),
	}
}

// SpanDigits is the number of decimal digits of upper-lower.
func (s *Sampler) SpanDigits() int {
	return s.spanDigits
}

// Sample returns v with lower <= v <= upper.
//
// A random digit string r of length n <= L (L = digits of the span) is
// scaled as span*r/10^L, so the offset stays below the span. Shorter strings
// land on smaller offsets, which spreads draws across magnitudes instead of
// clustering them near the upper bound.
func (s *Sampler) Sample() *big.Int {
	var r *big.Int
	for r == nil {
		digits := s.digits(s.digitLength())
		if v, ok := new(big.Int).SetString(digits, 10); ok {
			r = v
		}
	}
	offset := r.Mul(r, s.span)
	offset.Quo(offset, s.divisor)
	return offset.Add(offset, s.rng.Lower)
}

func (s *Sampler) digitLength() int {
	n := s.spanDigits
	limit := s.jitter
	if limit > n-1 {
		limit = n - 1
	}
	if limit <= 0 || s.src.Intn(2) == 0 {
		return n
	}
	return n - s.src.Intn(limit+1)
}

// digits concatenates fractional digits of uniform floats until n digits
// are available. The result holds only '0'..'9'.
func (s *Sampler) digits(n int) string {
	var b strings.Builder
	b.Grow(n + 24)
	for b.Len() < n {
		chunk := fractionDigits(s.src.Float64())
		if chunk == "" {
			b.WriteByte('0')
			continue
		}
		b.WriteString(chunk)
	}
	return b.String()[:n]
}

// fractionDigits returns the digits after the decimal point of f's shortest
// positional representation, so 1.5e-07 yields "00000015". Any byte outside
// '0'..'9' is still dropped.
func fractionDigits(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < '0' || r > '9' {
			return -1
		}
		return r
	}, s[dot+1:])
}
