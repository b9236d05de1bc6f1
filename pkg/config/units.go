package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Duration is a time.Duration that reads from YAML strings such as "90s", "2d" or "1w3d12h".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.Std().String(), nil
}

// ParseDuration extends time.ParseDuration with leading week and day components.
// Weeks must precede days and both must precede the standard units. Empty input is zero.
func ParseDuration(s string) (time.Duration, error) {
	rest := strings.TrimSpace(s)
	if rest == "" {
		return 0, nil
	}

	var total time.Duration
	for _, u := range []struct {
		suffix byte
		unit   time.Duration
	}{{'w', Week}, {'d', Day}} {
		n, tail, ok := leadingNumber(rest, u.suffix)
		if !ok {
			continue
		}
		total += time.Duration(n * float64(u.unit))
		rest = tail
	}
	if rest == "" {
		return total, nil
	}

	std, err := time.ParseDuration(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total + std, nil
}

// leadingNumber splits "<number><suffix><tail>" when s starts with that shape.
func leadingNumber(s string, suffix byte) (float64, string, bool) {
	i := 0
	for i < len(s) && (s[i] == '.' || (s[i] >= '0' && s[i] <= '9')) {
		i++
	}
	if i == 0 || i >= len(s) || s[i] != suffix {
		return 0, s, false
	}
	n, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return 0, s, false
	}
	return n, s[i+1:], true
}
