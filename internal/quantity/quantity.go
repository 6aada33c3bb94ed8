// Package quantity parses and formats SI/binary-suffixed resource quantity
// strings, the same grammar Kubernetes-style allocatable/request fields use
// ("100Mi", "200m", "10").
package quantity

import (
	"fmt"
	"regexp"
	"strconv"
)

var pattern = regexp.MustCompile(`^([0-9]+)([A-Za-z]*)$`)

var factors = map[string]float64{
	"":  1,
	"m": 1e-3,
	"K": 1e3, "M": 1e6, "G": 1e9, "T": 1e12, "P": 1e15, "E": 1e18,
	"Ki": 1 << 10, "Mi": 1 << 20, "Gi": 1 << 30, "Ti": 1 << 40, "Pi": 1 << 50, "Ei": 1 << 60,
}

// Parse converts a quantity string into its numeric value. Digits are
// split from the trailing suffix; an unrecognized suffix is treated
// leniently with a factor of 1, matching the original implementation.
func Parse(s string) (float64, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("quantity: invalid format %q", s)
	}
	digits, suffix := m[1], m[2]
	val, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, fmt.Errorf("quantity: invalid digits in %q: %w", s, err)
	}
	factor, ok := factors[suffix]
	if !ok {
		factor = 1
	}
	return val * factor, nil
}

// Kind discriminates how Format renders a numeric value.
type Kind int

const (
	KindGeneric Kind = iota
	KindCPU
	KindMemory
	KindPods
)

// Format renders a numeric value back into a quantity string per kind:
// cpu to one decimal place, memory as integer mebibytes with an "Mi"
// suffix, pods and generic as plain integers.
func Format(v float64, kind Kind) string {
	switch kind {
	case KindCPU:
		return fmt.Sprintf("%.1f", v)
	case KindMemory:
		mi := v / (1 << 20)
		return fmt.Sprintf("%dMi", int64(mi))
	default:
		return fmt.Sprintf("%d", int64(v))
	}
}
