// Package imgmetrics computes image-quality signals for logged predictions.
package imgmetrics

import (
	"fmt"
	"strings"
)

// Value is a computed numeric metric value.
type Value struct {
	Number    float64
	Available bool
}

// AvailableValue constructs an available metric value.
func AvailableValue(n float64) Value {
	return Value{
		Number:    n,
		Available: true,
	}
}

// UnavailableValue constructs an unavailable metric value.
func UnavailableValue() Value {
	return Value{}
}

// Box is an axis-aligned bounding box in pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 float64
}

// Area returns the box area, zero for degenerate boxes.
func (b Box) Area() float64 {
	w := b.X2 - b.X1
	h := b.Y2 - b.Y1
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Valid reports whether the box has positive extent.
func (b Box) Valid() bool {
	return b.X2 > b.X1 && b.Y2 > b.Y1
}

// Input carries everything a metric may inspect. Frame is nil when no image
// was supplied with the prediction; Box is nil for classification tasks.
type Input struct {
	Frame *Frame
	Box   *Box
}

// Definition describes a metric and how to compute it.
type Definition struct {
	ID          string
	Name        string
	Description string
	// RequiresImage marks metrics that need a decoded frame; the logger
	// skips image decoding entirely when no enabled metric needs one.
	RequiresImage bool
	Compute       func(in Input) (Value, error)
}

// SplitList parses comma-separated metric names.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func unknownMetricErr(name string) error {
	return fmt.Errorf(
		"unknown metric %q (available: %s)",
		name,
		strings.Join(availableNames(), ", "),
	)
}
