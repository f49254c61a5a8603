// Package config provides configuration loading and parsing for hailstone.
package config

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// lookupSetting returns the first candidate key present in settings.
// Keys match when they agree after lowercasing and dropping '_' and '-',
// so "step_ceiling", "step-ceiling" and "stepCeiling" are one setting.
func lookupSetting(settings map[string]interface{}, candidates ...string) (interface{}, bool) {
	for _, key := range candidates {
		if val, ok := settings[key]; ok {
			return val, true
		}
	}
	for _, key := range candidates {
		want := settingKey(key)
		for k, val := range settings {
			if settingKey(k) == want {
				return val, true
			}
		}
	}
	return nil, false
}

func settingKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' {
			return -1
		}
		return unicode.ToLower(r)
	}, strings.TrimSpace(key))
}

// blank reports whether value is nil or an all-space string. Blank
// settings leave the default in place.
func blank(value interface{}) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func asString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return fmt.Sprint(value), nil
}

// asBigInt is the integer parser every other integer setting goes through.
// Strings accept power expressions ("2^68"). Decoded floats are accepted
// only while they are exact integers no larger than 2^53; bigger bounds have
// to be quoted in the config file.
func asBigInt(value interface{}) (*big.Int, error) {
	if blank(value) {
		return nil, nil
	}
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case string:
		return ParseBigInt(v)
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.CanInt():
		return big.NewInt(rv.Int()), nil
	case rv.CanUint():
		return new(big.Int).SetUint64(rv.Uint()), nil
	case rv.CanFloat():
		f := rv.Float()
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return nil, fmt.Errorf("number %g is not exactly representable; quote it as a string", f)
		}
		return big.NewInt(int64(f)), nil
	}
	return nil, fmt.Errorf("unsupported integer type %T", value)
}

func asInt64(value interface{}) (int64, error) {
	b, err := asBigInt(value)
	if err != nil || b == nil {
		return 0, err
	}
	if !b.IsInt64() {
		return 0, fmt.Errorf("value %s out of range", b)
	}
	return b.Int64(), nil
}

func asInt(value interface{}) (int, error) {
	i, err := asInt64(value)
	if err != nil {
		return 0, err
	}
	if i < math.MinInt || i > math.MaxInt {
		return 0, fmt.Errorf("value %d out of range", i)
	}
	return int(i), nil
}

// asUint64 rejects negatives rather than wrapping them.
func asUint64(value interface{}) (uint64, error) {
	b, err := asBigInt(value)
	if err != nil || b == nil {
		return 0, err
	}
	if b.Sign() < 0 {
		return 0, fmt.Errorf("value %s must be >= 0", b)
	}
	if !b.IsUint64() {
		return 0, fmt.Errorf("value %s out of range", b)
	}
	return b.Uint64(), nil
}

func asFloat64(value interface{}) (float64, error) {
	if blank(value) {
		return 0, nil
	}
	if s, ok := value.(string); ok {
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.CanFloat():
		return rv.Float(), nil
	case rv.CanInt():
		return float64(rv.Int()), nil
	case rv.CanUint():
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("unsupported float type %T", value)
}

func asBool(value interface{}) (bool, error) {
	if blank(value) {
		return false, nil
	}
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		switch s {
		case "on", "yes":
			return true, nil
		case "off", "no":
			return false, nil
		}
		return strconv.ParseBool(s)
	}
	return false, fmt.Errorf("unsupported boolean type %T", value)
}

// asDuration parses Go duration strings ("2s", "250ms"). Bare numbers,
// decoded or quoted, are milliseconds, matching delay_ms.
func asDuration(value interface{}) (time.Duration, error) {
	if blank(value) {
		return 0, nil
	}
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if ms, err := strconv.ParseFloat(s, 64); err == nil {
			return millis(ms)
		}
		return time.ParseDuration(s)
	}

	f, err := asFloat64(value)
	if err != nil {
		return 0, fmt.Errorf("unsupported duration type %T", value)
	}
	return millis(f)
}

func millis(ms float64) (time.Duration, error) {
	ns := math.Round(ms * float64(time.Millisecond))
	if math.IsNaN(ns) || math.Abs(ns) > math.MaxInt64 {
		return 0, fmt.Errorf("duration of %g ms out of range", ms)
	}
	return time.Duration(ns), nil
}

// asStringSlice accepts a list or a single string.
func asStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case string:
		return []string{v}, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported string slice type %T", value)
}

// toStringKeyMap turns a decoded nested section into a settings map with
// lowercased keys.
func toStringKeyMap(value interface{}) (map[string]interface{}, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("expected map, got %T", value)
	}
	out := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := asString(iter.Key().Interface())
		if err != nil {
			return nil, err
		}
		out[strings.ToLower(strings.TrimSpace(key))] = iter.Value().Interface()
	}
	return out, nil
}
