package units

// Package units parses and renders storage sizes such as "10GB" or "512MiB".

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

const prefixes = "KMGTPEZY"

var sizePattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)(?:B|([KMGTPEZY])(B|iB)?)?$`)

// ParseError reports a size literal that could not be understood.
type ParseError struct {
	Literal string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid size %q: %s", e.Literal, e.Reason)
}

// Parse converts a size literal into bytes. A bare number or a number with a
// lone "B" is bytes, a unit letter with or without a trailing "B" steps by
// 1000, and "iB" steps by 1024. Everything Format prints parses back.
func Parse(s string) (int64, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, &ParseError{Literal: s, Reason: "expected a number optionally followed by B, or by one of K M G T P E Z Y and B or iB"}
	}

	// Normalize to a form humanize understands unambiguously: "1.5 GB", "2 KiB".
	number, prefix, suffix := m[1], m[2], m[3]
	unit := "B"
	if prefix != "" {
		unit = prefix + "B"
		if suffix == "iB" {
			unit = prefix + "iB"
		}
	}

	n, err := humanize.ParseBigBytes(number + " " + unit)
	if err != nil {
		return 0, &ParseError{Literal: s, Reason: err.Error()}
	}
	if !n.IsInt64() {
		return 0, &ParseError{Literal: s, Reason: "value out of range"}
	}
	return n.Int64(), nil
}

// Format renders n with three significant digits and a decimal unit, e.g.
// "1.5MB" or "999B". Values <= 0 render as the plain byte count.
func Format(n int64) string {
	if n <= 0 {
		return fmt.Sprintf("%dB", n)
	}

	exp := int(math.Log10(float64(n)*1.1) / 3)
	if exp > len(prefixes) {
		exp = len(prefixes)
	}

	mantissa := float64(n) / math.Pow(1000, float64(exp))
	unit := ""
	if exp > 0 {
		unit = string(prefixes[exp-1])
	}
	return fmt.Sprintf("%.3g%sB", mantissa, unit)
}

// Size is a byte count flag value. It satisfies pflag.Value so cobra
// reports malformed literals before any command runs.
type Size struct {
	Bytes   int64
	literal string
}

func (s *Size) String() string {
	return s.literal
}

func (s *Size) Set(v string) error {
	v = strings.TrimSpace(v)
	n, err := Parse(v)
	if err != nil {
		return err
	}
	s.Bytes = n
	s.literal = v
	return nil
}

func (s *Size) Type() string {
	return "size"
}
