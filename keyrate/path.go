// Package keyrate builds the forward path of the central-bank key rate used
// by the pool model and the floating-coupon calculator, and projects the
// mortgage refinancing rate off it.
package keyrate

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrEmptyPath is returned when a path operation needs at least one point.
var ErrEmptyPath = errors.New("empty key rate path")

// Point is a rate effective from Date until the next point's date.
type Point struct {
	Date time.Time
	Rate float64
}

// Path is an ordered step function of the key rate: dates strictly
// increasing, no two consecutive points with equal rate.
type Path struct {
	points []Point
}

// NewPath sorts the points, drops consecutive duplicates and validates that
// no two points share a date with different rates.
func NewPath(points []Point) (Path, error) {
	if len(points) == 0 {
		return Path{}, fmt.Errorf("NewPath: %w", ErrEmptyPath)
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := make([]Point, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.Date.Equal(p.Date) {
				if prev.Rate != p.Rate {
					return Path{}, fmt.Errorf("NewPath: conflicting rates %v and %v on %s",
						prev.Rate, p.Rate, p.Date.Format("2006-01-02"))
				}
				continue
			}
			if prev.Rate == p.Rate {
				continue
			}
		}
		out = append(out, p)
	}
	return Path{points: out}, nil
}

// Points returns the step function as a sorted slice.
func (p Path) Points() []Point {
	out := make([]Point, len(p.points))
	copy(out, p.points)
	return out
}

// Len returns the number of distinct steps.
func (p Path) Len() int { return len(p.points) }

// RateAt returns the rate effective at d: the most recent point at or
// before d. Dates before the first point take the first point's rate.
func (p Path) RateAt(d time.Time) (float64, error) {
	if len(p.points) == 0 {
		return 0, fmt.Errorf("RateAt: %w", ErrEmptyPath)
	}
	// First index with date strictly after d.
	i := sort.Search(len(p.points), func(i int) bool { return p.points[i].Date.After(d) })
	if i == 0 {
		return p.points[0].Rate, nil
	}
	return p.points[i-1].Rate, nil
}

// Last returns the final step of the path.
func (p Path) Last() (Point, error) {
	if len(p.points) == 0 {
		return Point{}, fmt.Errorf("Last: %w", ErrEmptyPath)
	}
	return p.points[len(p.points)-1], nil
}

// Truncate returns the sub-path of points dated at or before d.
func (p Path) Truncate(d time.Time) Path {
	i := sort.Search(len(p.points), func(i int) bool { return p.points[i].Date.After(d) })
	out := make([]Point, i)
	copy(out, p.points[:i])
	return Path{points: out}
}
