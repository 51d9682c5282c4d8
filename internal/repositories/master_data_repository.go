package repositories

import (
	"context"

	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MasterDataRepository reads societies, units and fee structures maintained
// by the administration module
type MasterDataRepository struct {
	DB *pgxpool.Pool
}

func NewMasterDataRepository(db *pgxpool.Pool) *MasterDataRepository {
	return &MasterDataRepository{DB: db}
}

func (r *MasterDataRepository) GetSociety(ctx context.Context, societyID int64) (*models.SocietySettings, error) {
	var s models.SocietySettings
	err := conn(ctx, r.DB).QueryRow(ctx,
		`SELECT id, name, address, registration_number, gstin, interest_rate_pct, grace_days, billing_due_day
		 FROM societies WHERE id = $1`, societyID,
	).Scan(&s.ID, &s.Name, &s.Address, &s.RegistrationNumber, &s.GSTIN, &s.InterestRatePct,
		&s.GraceDays, &s.BillingDueDay)
	if err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

// ListSocietyIDs returns every society, for jobs that sweep all of them
func (r *MasterDataRepository) ListSocietyIDs(ctx context.Context) ([]int64, error) {
	rows, err := conn(ctx, r.DB).Query(ctx, `SELECT id FROM societies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetBillableUnits returns units billable in the period with their fee items.
// Units without a member or fee items are still returned so the caller can
// report them.
func (r *MasterDataRepository) GetBillableUnits(ctx context.Context, societyID int64, period models.Period) ([]models.BillableUnit, error) {
	first := timeutil.FirstOfMonth(period.Year, period.Month)
	last := timeutil.DueDate(period.Year, period.Month, 31)

	rows, err := conn(ctx, r.DB).Query(ctx,
		`SELECT u.id, u.unit_number, u.area_sqft, COALESCE(u.member_id, 0), u.member_name,
		        f.description, f.rate, f.per_sqft, f.gst_rate_pct
		 FROM units u
		 LEFT JOIN unit_fee_items f ON f.unit_id = u.id
		 WHERE u.society_id = $1 AND u.is_billable
		   AND (u.billing_from IS NULL OR u.billing_from <= $3)
		   AND (u.billing_until IS NULL OR u.billing_until >= $2)
		 ORDER BY u.id, f.sort_order, f.id`,
		societyID, first, last)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var units []models.BillableUnit
	for rows.Next() {
		var (
			unit    models.BillableUnit
			desc    *string
			rate    decimal.NullDecimal
			perSqft *bool
			gst     decimal.NullDecimal
		)
		if err := rows.Scan(&unit.UnitID, &unit.UnitNumber, &unit.AreaSqft, &unit.MemberID, &unit.MemberName,
			&desc, &rate, &perSqft, &gst); err != nil {
			return nil, err
		}
		if n := len(units); n == 0 || units[n-1].UnitID != unit.UnitID {
			units = append(units, unit)
		}
		if desc == nil {
			continue
		}
		cur := &units[len(units)-1]
		cur.FeeItems = append(cur.FeeItems, models.FeeItem{
			Description: *desc,
			Rate:        rate.Decimal,
			PerSqft:     perSqft != nil && *perSqft,
			GSTRatePct:  gst.Decimal,
		})
	}
	return units, rows.Err()
}
