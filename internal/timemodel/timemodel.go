// Package timemodel converts between timeline seconds and ruler pixel
// offsets, and provides half-open interval tests used for clip placement.
package timemodel

import (
	"errors"
	"fmt"
	"math"
)

// DefaultPixelsPerSecond is the ruler scale used when none is configured.
const DefaultPixelsPerSecond = 50.0

// ErrInvalidParameter is returned for non-positive scales or non-finite,
// negative inputs.
var ErrInvalidParameter = errors.New("invalid parameter")

// Interval is a half-open time range [Start, End) in seconds.
type Interval struct {
	Start float64
	End   float64
}

// Duration returns End - Start.
func (i Interval) Duration() float64 {
	return i.End - i.Start
}

// Contains reports whether t falls in [Start, End).
func (i Interval) Contains(t float64) bool {
	return t >= i.Start && t < i.End
}

// StrictlyInside reports whether Start < t < End.
func (i Interval) StrictlyInside(t float64) bool {
	return t > i.Start && t < i.End
}

// Valid reports whether the interval is finite, non-negative and non-empty.
func (i Interval) Valid() bool {
	return finite(i.Start) && finite(i.End) && i.Start >= 0 && i.End > i.Start
}

// Overlaps reports whether a and b share any time. Touching endpoints do not
// overlap, so clips may sit exactly adjacent.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// TimeToOffset maps a timeline time to a ruler offset.
func TimeToOffset(seconds, pixelsPerSecond float64) (float64, error) {
	if err := checkScale(pixelsPerSecond); err != nil {
		return 0, err
	}
	if err := checkValue("time", seconds); err != nil {
		return 0, err
	}
	offset := seconds * pixelsPerSecond
	if !finite(offset) {
		return 0, fmt.Errorf("%w: %vs at %v px/s overflows the ruler", ErrInvalidParameter, seconds, pixelsPerSecond)
	}
	return offset, nil
}

// OffsetToTime maps a ruler offset back to a timeline time.
func OffsetToTime(offset, pixelsPerSecond float64) (float64, error) {
	if err := checkScale(pixelsPerSecond); err != nil {
		return 0, err
	}
	if err := checkValue("offset", offset); err != nil {
		return 0, err
	}
	seconds := offset / pixelsPerSecond
	if !finite(seconds) {
		return 0, fmt.Errorf("%w: offset %v at %v px/s overflows", ErrInvalidParameter, offset, pixelsPerSecond)
	}
	return seconds, nil
}

// TimelineWidth returns the ruler width needed to show totalDuration seconds.
func TimelineWidth(totalDuration, pixelsPerSecond float64) (float64, error) {
	return TimeToOffset(totalDuration, pixelsPerSecond)
}

// SeekTime maps a scroll offset to a playhead time clamped to
// [0, totalDuration]. ok is false when clamping was needed.
func SeekTime(offset, pixelsPerSecond, totalDuration float64) (t float64, ok bool, err error) {
	if err := checkScale(pixelsPerSecond); err != nil {
		return 0, false, err
	}
	if !finite(offset) || !finite(totalDuration) || totalDuration < 0 {
		return 0, false, fmt.Errorf("%w: seek offset and duration must be finite", ErrInvalidParameter)
	}
	t = offset / pixelsPerSecond
	switch {
	case t < 0:
		return 0, false, nil
	case t > totalDuration:
		return totalDuration, false, nil
	}
	return t, true, nil
}

func checkScale(pixelsPerSecond float64) error {
	if !finite(pixelsPerSecond) || pixelsPerSecond <= 0 {
		return fmt.Errorf("%w: pixelsPerSecond must be > 0, got %v", ErrInvalidParameter, pixelsPerSecond)
	}
	return nil
}

func checkValue(name string, v float64) error {
	if !finite(v) || v < 0 {
		return fmt.Errorf("%w: %s must be finite and non-negative, got %v", ErrInvalidParameter, name, v)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
