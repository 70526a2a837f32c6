package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is the unit a measured duration was reported in.
type Unit uint8

const (
	Nanosecond Unit = iota
	Microsecond
	Millisecond
	Second
)

// CanonicalUnit is the single unit every duration metric is stored and
// reported in, across all reports.
const CanonicalUnit = Millisecond

func (u Unit) String() string {
	switch u {
	case Nanosecond:
		return "ns"
	case Microsecond:
		return "µs"
	case Millisecond:
		return "ms"
	case Second:
		return "s"
	}
	return "unit(" + strconv.Itoa(int(u)) + ")"
}

func (u Unit) nanos() float64 {
	switch u {
	case Microsecond:
		return 1e3
	case Millisecond:
		return 1e6
	case Second:
		return 1e9
	}
	return 1
}

// unitSuffixes is checked in order, so longer suffixes ending in "s" come first.
var unitSuffixes = []struct {
	suffix string
	unit   Unit
}{
	{"ns", Nanosecond},
	{"µs", Microsecond}, // U+00B5 micro sign, what time.Duration.String emits
	{"μs", Microsecond}, // U+03BC greek mu
	{"us", Microsecond},
	{"ms", Millisecond},
	{"s", Second},
}

// Duration is a measured time value together with the unit it was tagged with.
type Duration struct {
	Value float64
	Unit  Unit
}

// In converts d to unit u.
func (d Duration) In(u Unit) float64 {
	if d.Unit == u {
		return d.Value
	}
	return d.Value * d.Unit.nanos() / u.nanos()
}

// Canonical converts d to CanonicalUnit.
func (d Duration) Canonical() float64 { return d.In(CanonicalUnit) }

func (d Duration) String() string {
	return strconv.FormatFloat(d.Value, 'f', -1, 64) + d.Unit.String()
}

// ParseDuration parses a unit-suffixed duration such as "12.3ms", "450µs",
// "450 us" or "800ns". A bare number is taken to be in CanonicalUnit.
// Compound forms produced by time.Duration.String ("1m2.5s") are accepted too.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Duration{}, fmt.Errorf("empty duration")
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Duration{}, fmt.Errorf("duration %q is not finite", s)
		}
		return Duration{Value: v, Unit: CanonicalUnit}, nil
	}
	for _, us := range unitSuffixes {
		if !strings.HasSuffix(s, us.suffix) {
			continue
		}
		num := strings.TrimSpace(strings.TrimSuffix(s, us.suffix))
		if v, err := ParseNumber(num); err == nil {
			return Duration{Value: v, Unit: us.unit}, nil
		}
		break
	}
	if td, err := time.ParseDuration(strings.ReplaceAll(s, "μs", "µs")); err == nil {
		return Duration{Value: float64(td.Nanoseconds()), Unit: Nanosecond}, nil
	}
	return Duration{}, fmt.Errorf("invalid duration %q", s)
}

// HasUnitSuffix reports whether s ends in a recognised duration unit.
func HasUnitSuffix(s string) bool {
	s = strings.TrimSpace(s)
	for _, us := range unitSuffixes {
		if strings.HasSuffix(s, us.suffix) {
			return true
		}
	}
	return false
}

// UnitBySuffix maps a field-name suffix such as "_ns" or "_ms" to its Unit.
func UnitBySuffix(name string) (base string, u Unit, ok bool) {
	for _, us := range unitSuffixes {
		if strings.HasSuffix(name, "_"+us.suffix) {
			return strings.TrimSuffix(name, "_"+us.suffix), us.unit, true
		}
	}
	return name, CanonicalUnit, false
}

// ParseNumber parses a decimal number, rejecting NaN and infinities.
func ParseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value %q is not finite", s)
	}
	return v, nil
}
