package models

import "time"

// AccountType classifies an account for reporting sign conventions
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeIncome    AccountType = "income"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is one of the five account types
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal is true for accounts whose balance grows with debits
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account is a chart-of-accounts entry owned by one society
type Account struct {
	ID        int64       `json:"id"`
	SocietyID int64       `json:"society_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
	CreatedAt time.Time   `json:"created_at"`
}
