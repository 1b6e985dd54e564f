package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/meenmo/mbslib/curve"
	"github.com/meenmo/mbslib/marketdata"
)

// CurveStore serves zero-coupon yield-curve coefficient snapshots.
type CurveStore struct {
	db *sql.DB
}

var _ marketdata.CurveSource = (*CurveStore)(nil)

func NewCurveStore(db *sql.DB) *CurveStore {
	return &CurveStore{db: db}
}

// Get returns the latest snapshot at or before the requested moment.
func (s *CurveStore) Get(ctx context.Context, asOf time.Time) (curve.Params, error) {
	var (
		p curve.Params
		g pq.Float64Array
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT "Timestamp", "B0", "B1", "B2", "Tau", "G"
		FROM "ZCYCParams"
		WHERE "Timestamp" <= $1
		ORDER BY "Timestamp" DESC LIMIT 1`, asOf).Scan(
		&p.Timestamp, &p.B0, &p.B1, &p.B2, &p.Tau, &g)
	if err == sql.ErrNoRows {
		return curve.Params{}, fmt.Errorf("CurveStore.Get: no curve snapshot at or before %s",
			asOf.Format("2006-01-02 15:04"))
	}
	if err != nil {
		return curve.Params{}, fmt.Errorf("CurveStore.Get: %w", err)
	}
	if len(g) != len(p.G) {
		return curve.Params{}, fmt.Errorf("CurveStore.Get: snapshot %s has %d hump coefficients, want %d",
			p.Timestamp.Format("2006-01-02 15:04"), len(g), len(p.G))
	}
	copy(p.G[:], g)
	return p, nil
}
