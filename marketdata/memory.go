package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/meenmo/mbslib/curve"
)

// StaticBonds is a map-backed BondTermsSource.
type StaticBonds map[string]BondData

func (s StaticBonds) Get(_ context.Context, bondID string) (BondData, error) {
	d, ok := s[bondID]
	if !ok {
		return BondData{}, fmt.Errorf("StaticBonds: unknown bond %q", bondID)
	}
	return d, nil
}

// StaticCurves serves the latest curve snapshot at or before the requested
// moment.
type StaticCurves []curve.Params

func (s StaticCurves) Get(_ context.Context, asOf time.Time) (curve.Params, error) {
	if len(s) == 0 {
		return curve.Params{}, fmt.Errorf("StaticCurves: no curve snapshots")
	}
	sorted := make([]curve.Params, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	best := -1
	for i, p := range sorted {
		if !p.Timestamp.After(asOf) {
			best = i
		}
	}
	if best < 0 {
		return curve.Params{}, fmt.Errorf("StaticCurves: no snapshot at or before %s", asOf.Format("2006-01-02 15:04"))
	}
	return sorted[best], nil
}

// StaticMacro serves one fixed macro response.
type StaticMacro MacroData

func (s StaticMacro) Get(context.Context, time.Time) (MacroData, error) {
	return MacroData(s), nil
}
