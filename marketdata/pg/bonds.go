package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/meenmo/mbslib/bond"
	"github.com/meenmo/mbslib/marketdata"
	"github.com/meenmo/mbslib/pool"
)

// BondStore loads issue terms and servicing history.
type BondStore struct {
	db *sql.DB
}

var _ marketdata.BondTermsSource = (*BondStore)(nil)

func NewBondStore(db *sql.DB) *BondStore {
	return &BondStore{db: db}
}

// Get loads everything the pricing engine needs for one issue.
func (s *BondStore) Get(ctx context.Context, bondID string) (marketdata.BondData, error) {
	var (
		d          marketdata.BondData
		t          = &d.Terms
		couponType int
		rate       sql.NullFloat64
		premium    sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT "ISIN", "Name", "IssueDate", "DeliveryDate", "FirstCouponDate",
		       "LegalRedemptionDate", "ActualRedemptionDate",
		       "CouponPeriodMonths", "CouponType", "NumBonds",
		       "StartBondPrincipal", "CleanUpPercent",
		       "FirstCouponFeePercent", "OtherCouponsFeePercent",
		       "ReinvestmentFlag", "CouponRate", "KeyRatePremium",
		       "SubsidizedFraction", "CouponRounding",
		       "PoolDebtAtDelivery", "ReinvestmentDeduction"
		FROM "BondTerms" WHERE "ISIN" = $1`, bondID).Scan(
		&t.ISIN, &t.Name, &t.IssueDate, &t.DeliveryDate, &t.FirstCouponDate,
		&t.LegalRedemptionDate, &t.ActualRedemptionDate,
		&t.CouponPeriodMonths, &couponType, &t.NumBonds,
		&t.StartBondPrincipal, &t.CleanUpPercent,
		&t.FirstCouponFeePercent, &t.OtherCouponsFeePercent,
		&t.ReinvestmentFlag, &rate, &premium,
		&t.SubsidizedFraction, &t.CouponRounding,
		&d.PoolDebtAtDelivery, &d.ReinvestmentDeduction)
	if err == sql.ErrNoRows {
		return marketdata.BondData{}, fmt.Errorf("BondStore.Get: unknown bond %q: %w", bondID, bond.ErrValidation)
	}
	if err != nil {
		return marketdata.BondData{}, fmt.Errorf("BondStore.Get: %s: %w", bondID, err)
	}
	t.CouponType = bond.CouponType(couponType)
	t.StartIssuePrincipal = t.StartBondPrincipal * float64(t.NumBonds)
	if rate.Valid {
		t.FixedCouponRate = &rate.Float64
	}
	if premium.Valid {
		t.FixedKeyRatePremium = &premium.Float64
	}

	if d.InvestorReports, err = s.investorReports(ctx, bondID, `"InvestorReports"`); err != nil {
		return marketdata.BondData{}, err
	}
	if d.FixedAmortizationSchedule, err = s.investorReports(ctx, bondID, `"FixedAmortization"`); err != nil {
		return marketdata.BondData{}, err
	}
	if d.ServicingReports, err = s.servicingReports(ctx, bondID); err != nil {
		return marketdata.BondData{}, err
	}
	if d.PoolSnapshots, err = s.poolSnapshots(ctx, bondID); err != nil {
		return marketdata.BondData{}, err
	}
	if d.SCurves, err = s.sCurves(ctx, bondID); err != nil {
		return marketdata.BondData{}, err
	}
	if err = s.db.QueryRowContext(ctx, `
		SELECT "SpecDepTariffPercent", "SpecDepMinMonthly",
		       "ManagerAccountantMonthly", "PaymentAgentYearly"
		FROM "IssueExpenses" WHERE "ISIN" = $1`, bondID).Scan(
		&d.Expenses.SpecDepTariffPercent, &d.Expenses.SpecDepMinMonthly,
		&d.Expenses.ManagerAccountantMonthly, &d.Expenses.PaymentAgentYearly,
	); err != nil && err != sql.ErrNoRows {
		return marketdata.BondData{}, fmt.Errorf("BondStore.Get: %s: expenses: %w", bondID, err)
	}
	return d, nil
}

func (s *BondStore) investorReports(ctx context.Context, bondID, table string) ([]marketdata.InvestorReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "CouponDate", "BondPrincipalStart", "BondAmortization", "BondCoupon"
		FROM `+table+` WHERE "ISIN" = $1 ORDER BY "CouponDate"`, bondID)
	if err != nil {
		return nil, fmt.Errorf("BondStore.investorReports: %s: %w", bondID, err)
	}
	defer rows.Close()

	var out []marketdata.InvestorReportRow
	for rows.Next() {
		var r marketdata.InvestorReportRow
		if err := rows.Scan(&r.CouponDate, &r.BondPrincipalStart, &r.BondAmortization, &r.BondCoupon); err != nil {
			return nil, fmt.Errorf("BondStore.investorReports: %s: %w", bondID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *BondStore) servicingReports(ctx context.Context, bondID string) ([]marketdata.ServicingReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "Month", "CPR", "CDR"
		FROM "ServicingReports" WHERE "ISIN" = $1 ORDER BY "Month"`, bondID)
	if err != nil {
		return nil, fmt.Errorf("BondStore.servicingReports: %s: %w", bondID, err)
	}
	defer rows.Close()

	var out []marketdata.ServicingReport
	for rows.Next() {
		var r marketdata.ServicingReport
		if err := rows.Scan(&r.Month, &r.CPR, &r.CDR); err != nil {
			return nil, fmt.Errorf("BondStore.servicingReports: %s: %w", bondID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *BondStore) poolSnapshots(ctx context.Context, bondID string) ([]marketdata.PoolSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "ReportDate", "Debt", "DebtFixed", "DebtFloat"
		FROM "PoolSnapshots" WHERE "ISIN" = $1 ORDER BY "ReportDate"`, bondID)
	if err != nil {
		return nil, fmt.Errorf("BondStore.poolSnapshots: %s: %w", bondID, err)
	}
	defer rows.Close()

	var out []marketdata.PoolSnapshot
	for rows.Next() {
		var r marketdata.PoolSnapshot
		if err := rows.Scan(&r.ReportDate, &r.Debt, &r.DebtFixed, &r.DebtFloat); err != nil {
			return nil, fmt.Errorf("BondStore.poolSnapshots: %s: %w", bondID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *BondStore) sCurves(ctx context.Context, bondID string) ([]pool.SCurveParams, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT "ReportDate", "Coefficients"
		FROM "SCurves" WHERE "ISIN" = $1 ORDER BY "ReportDate"`, bondID)
	if err != nil {
		return nil, fmt.Errorf("BondStore.sCurves: %s: %w", bondID, err)
	}
	defer rows.Close()

	var out []pool.SCurveParams
	for rows.Next() {
		var (
			r      pool.SCurveParams
			coeffs pq.Float64Array
		)
		if err := rows.Scan(&r.ReportDate, &coeffs); err != nil {
			return nil, fmt.Errorf("BondStore.sCurves: %s: %w", bondID, err)
		}
		r.Coefficients = []float64(coeffs)
		out = append(out, r)
	}
	return out, rows.Err()
}
