package models

import "github.com/shopspring/decimal"

// SocietySettings are the billing parameters and letterhead of a society
type SocietySettings struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Address            string          `json:"address"`
	RegistrationNumber string          `json:"registration_number"`
	GSTIN              string          `json:"gstin"`
	InterestRatePct    decimal.Decimal `json:"interest_rate_pct"`
	GraceDays          int             `json:"grace_days"`
	BillingDueDay      int             `json:"billing_due_day"`
}

// FeeItem is one configured charge on a unit's fee structure
type FeeItem struct {
	Description string          `json:"description"`
	Rate        decimal.Decimal `json:"rate"`
	PerSqft     bool            `json:"per_sqft"`
	GSTRatePct  decimal.Decimal `json:"gst_rate_pct"`
}

// BillableUnit is a unit with its member and fee structure for one period
type BillableUnit struct {
	UnitID     int64           `json:"unit_id"`
	UnitNumber string          `json:"unit_number"`
	AreaSqft   decimal.Decimal `json:"area_sqft"`
	MemberID   int64           `json:"member_id"`
	MemberName string          `json:"member_name"`
	FeeItems   []FeeItem       `json:"fee_items"`
}
