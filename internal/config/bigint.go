package config

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// maxBoundBits caps the size of a power expression so a typo cannot allocate gigabytes.
const maxBoundBits = 1 << 26

// ParseBigInt parses a non-empty integer literal. Besides plain decimal (and
// 0x/0o/0b prefixed) literals it accepts power expressions such as "2^68"
// and "2**90000".
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}

	if base, exp, ok := splitPower(s); ok {
		b, err := ParseBigInt(base)
		if err != nil {
			return nil, fmt.Errorf("power base: %w", err)
		}
		e, err := strconv.ParseUint(strings.TrimSpace(exp), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("power exponent %q: %w", exp, err)
		}
		if bits := uint64(b.BitLen()) * e; bits > maxBoundBits {
			return nil, fmt.Errorf("power %s is too large (%d bits, max %d)", s, bits, maxBoundBits)
		}
		return new(big.Int).Exp(b, new(big.Int).SetUint64(e), nil), nil
	}

	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}

func splitPower(s string) (string, string, bool) {
	if i := strings.Index(s, "**"); i >= 0 {
		return s[:i], s[i+2:], true
	}
	if i := strings.IndexByte(s, '^'); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return "", "", false
}
