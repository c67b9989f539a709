package domain

import (
	"errors"
	"fmt"
	"math"
)

// Zone is a labeled sub-range of a metric's domain with the score it awards.
// Inclusivity is explicit per zone: after resolution both flags are always set.
// The default is lower-inclusive, upper-exclusive, with the top zone's upper
// bound inclusive.
type Zone struct {
	Label                 string  `json:"label"                           validate:"required"`
	LowerBound            float64 `json:"lowerBound"`
	UpperBound            float64 `json:"upperBound"`
	Score                 float64 `json:"score"                           validate:"min=0,max=100"`
	BoundaryInclusiveLow  *bool   `json:"boundaryInclusiveLow,omitempty"`
	BoundaryInclusiveHigh *bool   `json:"boundaryInclusiveHigh,omitempty"`
}

// LowInclusive reports whether the lower bound belongs to the zone.
func (z Zone) LowInclusive() bool {
	return z.BoundaryInclusiveLow == nil || *z.BoundaryInclusiveLow
}

// HighInclusive reports whether the upper bound belongs to the zone.
func (z Zone) HighInclusive() bool {
	return z.BoundaryInclusiveHigh != nil && *z.BoundaryInclusiveHigh
}

// Contains reports whether v lies inside the zone under its inclusivity rules.
func (z Zone) Contains(v float64) bool {
	aboveLow := v > z.LowerBound || (v == z.LowerBound && z.LowInclusive())
	belowHigh := v < z.UpperBound || (v == z.UpperBound && z.HighInclusive())
	return aboveLow && belowHigh
}

// ZoneSet is an ordered, non-overlapping, gap-free list of zones.
type ZoneSet []Zone

// Zone-set validation errors.
var (
	ErrEmptyZoneSet   = errors.New("zone set is empty")
	ErrZoneOrder      = errors.New("zones must be ordered by ascending bounds")
	ErrZoneGap        = errors.New("zones leave a gap")
	ErrZoneOverlap    = errors.New("zones overlap")
	ErrZoneBoundary   = errors.New("shared boundary must belong to exactly one zone")
	ErrZoneDuplicates = errors.New("zone labels must be unique")
)

// Resolve returns a copy of the set with both inclusivity flags set on every zone.
// A missing lower flag defaults to inclusive. A missing upper flag defaults to the
// complement of the next zone's lower flag, and to inclusive for the top zone.
func (zs ZoneSet) Resolve() ZoneSet {
	out := make(ZoneSet, len(zs))
	copy(out, zs)
	for i := range out {
		if out[i].BoundaryInclusiveLow == nil {
			out[i].BoundaryInclusiveLow = boolPtr(true)
		} else {
			out[i].BoundaryInclusiveLow = boolPtr(*out[i].BoundaryInclusiveLow)
		}
	}
	for i := range out {
		if out[i].BoundaryInclusiveHigh != nil {
			out[i].BoundaryInclusiveHigh = boolPtr(*out[i].BoundaryInclusiveHigh)
			continue
		}
		if i == len(out)-1 {
			out[i].BoundaryInclusiveHigh = boolPtr(true)
			continue
		}
		out[i].BoundaryInclusiveHigh = boolPtr(!out[i+1].LowInclusive())
	}
	return out
}

// Validate checks the coverage invariant: every real value inside
// [first.LowerBound, last.UpperBound] falls in exactly one zone.
func (zs ZoneSet) Validate() error {
	if len(zs) == 0 {
		return ErrEmptyZoneSet
	}
	labels := make(map[string]struct{}, len(zs))
	for i, z := range zs {
		if err := validate.Struct(z); err != nil {
			return fmt.Errorf("zone %d: %w", i, err)
		}
		if math.IsNaN(z.LowerBound) || math.IsNaN(z.UpperBound) || !(z.LowerBound < z.UpperBound) {
			return fmt.Errorf("zone %q: lowerBound must be below upperBound: %w", z.Label, ErrZoneOrder)
		}
		if _, dup := labels[z.Label]; dup {
			return fmt.Errorf("zone %q: %w", z.Label, ErrZoneDuplicates)
		}
		labels[z.Label] = struct{}{}
		if i == 0 {
			continue
		}
		prev := zs[i-1]
		switch {
		case z.LowerBound < prev.LowerBound:
			return fmt.Errorf("zone %q: %w", z.Label, ErrZoneOrder)
		case z.LowerBound > prev.UpperBound:
			return fmt.Errorf("between %q and %q: %w", prev.Label, z.Label, ErrZoneGap)
		case z.LowerBound < prev.UpperBound:
			return fmt.Errorf("between %q and %q: %w", prev.Label, z.Label, ErrZoneOverlap)
		}
		if prev.HighInclusive() == z.LowInclusive() {
			return fmt.Errorf("boundary %v between %q and %q: %w", z.LowerBound, prev.Label, z.Label, ErrZoneBoundary)
		}
	}
	return nil
}

// Labels returns the zone labels in order.
func (zs ZoneSet) Labels() []string {
	out := make([]string, len(zs))
	for i, z := range zs {
		out[i] = z.Label
	}
	return out
}

func boolPtr(b bool) *bool { return &b }
