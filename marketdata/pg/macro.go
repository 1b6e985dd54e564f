package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meenmo/mbslib/keyrate"
	"github.com/meenmo/mbslib/marketdata"
)

// MacroStore serves policy-rate history, forecasts and the refinancing-rate
// model inputs.
type MacroStore struct {
	db *sql.DB
}

var _ marketdata.MacroDataSource = (*MacroStore)(nil)

func NewMacroStore(db *sql.DB) *MacroStore {
	return &MacroStore{db: db}
}

// Get assembles the macro response for an as-of date. The refinancing model
// is recalibrated from the stored weekly history on every call.
func (s *MacroStore) Get(ctx context.Context, asOf time.Time) (marketdata.MacroData, error) {
	var (
		d   marketdata.MacroData
		err error
	)
	if d.Meetings, err = s.points(ctx, `SELECT "Date", "Rate" FROM "KeyRateMeetings" ORDER BY "Date"`); err != nil {
		return marketdata.MacroData{}, err
	}
	if d.Forecast, err = s.points(ctx, `SELECT "Date", "Rate" FROM "KeyRateForecast" ORDER BY "Date"`); err != nil {
		return marketdata.MacroData{}, err
	}
	if d.SmoothedForecast, err = s.points(ctx, `SELECT "Date", "Rate" FROM "KeyRateForecastSmoothed" ORDER BY "Date"`); err != nil {
		return marketdata.MacroData{}, err
	}

	// Latest swap-implied path at or before the as-of date.
	var quoteDate sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX("QuoteDate") FROM "KeyRateSwapPath" WHERE "QuoteDate" <= $1`, asOf).Scan(&quoteDate)
	if err != nil && err != sql.ErrNoRows {
		return marketdata.MacroData{}, fmt.Errorf("MacroStore.Get: swap quote date: %w", err)
	}
	if quoteDate.Valid {
		d.SwapDate = quoteDate.Time
		d.SwapPath, err = s.points(ctx,
			`SELECT "Date", "Rate" FROM "KeyRateSwapPath" WHERE "QuoteDate" = $1 ORDER BY "Date"`, d.SwapDate)
		if err != nil {
			return marketdata.MacroData{}, err
		}
	}

	if err = s.refiHistory(ctx, &d); err != nil {
		return marketdata.MacroData{}, err
	}
	return d, nil
}

func (s *MacroStore) points(ctx context.Context, query string, args ...any) ([]keyrate.Point, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("MacroStore.points: %w", err)
	}
	defer rows.Close()

	var out []keyrate.Point
	for rows.Next() {
		var p keyrate.Point
		if err := rows.Scan(&p.Date, &p.Rate); err != nil {
			return nil, fmt.Errorf("MacroStore.points: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *MacroStore) refiHistory(ctx context.Context, d *marketdata.MacroData) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT "Date", "KeyRate", "RefiRate" FROM "RefinancingHistory" ORDER BY "Date"`)
	if err != nil {
		return fmt.Errorf("MacroStore.refiHistory: %w", err)
	}
	defer rows.Close()

	var keys, refis []float64
	for rows.Next() {
		var r marketdata.RefiObservation
		if err := rows.Scan(&r.Date, &r.KeyRate, &r.RefiRate); err != nil {
			return fmt.Errorf("MacroStore.refiHistory: %w", err)
		}
		d.RefiHistory = append(d.RefiHistory, r)
		keys = append(keys, r.KeyRate)
		refis = append(refis, r.RefiRate)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("MacroStore.refiHistory: %w", err)
	}
	if len(d.RefiHistory) == 0 {
		return fmt.Errorf("MacroStore.refiHistory: no refinancing-rate history")
	}

	last := d.RefiHistory[len(d.RefiHistory)-1]
	d.CurrentRefiDate = last.Date
	d.CurrentRefiRate = last.RefiRate

	model, err := keyrate.CalibrateRefinancingModel(keys, refis)
	if err != nil {
		return fmt.Errorf("MacroStore.refiHistory: %w", err)
	}
	d.RefiModel = model
	return nil
}
