package reports

import (
	"time"

	"society-billing/internal/models"
	"society-billing/internal/timeutil"

	"github.com/shopspring/decimal"
)

// BalanceTolerance is the largest fund-position difference still shown as balanced
var BalanceTolerance = decimal.New(1, -2)

// IncomeExpense builds the income and expenditure statement from account
// turnover within the period
func IncomeExpense(societyID int64, totals []models.AccountTotal, from, to time.Time) models.IncomeExpenseStatement {
	st := models.IncomeExpenseStatement{SocietyID: societyID, From: from, To: to}
	for _, t := range totals {
		switch t.Type {
		case models.AccountTypeIncome:
			amount := t.Credit.Sub(t.Debit)
			st.Income = append(st.Income, models.StatementLine{Code: t.Code, Name: t.Name, Amount: amount})
			st.TotalIncome = st.TotalIncome.Add(amount)
		case models.AccountTypeExpense:
			amount := t.Debit.Sub(t.Credit)
			st.Expenses = append(st.Expenses, models.StatementLine{Code: t.Code, Name: t.Name, Amount: amount})
			st.TotalExpense = st.TotalExpense.Add(amount)
		}
	}
	st.Surplus = st.TotalIncome.Sub(st.TotalExpense)
	return st
}

// FundPosition builds the balance sheet from cumulative totals up to asOf.
// Income and expense are not closed into equity by this engine, so the
// running surplus is shown as its own equity line.
func FundPosition(societyID int64, totals []models.AccountTotal, asOf time.Time) models.FundPosition {
	fp := models.FundPosition{SocietyID: societyID, AsOf: timeutil.DateOf(asOf)}

	surplus := decimal.Zero
	for _, t := range totals {
		line := models.StatementLine{Code: t.Code, Name: t.Name}
		switch t.Type {
		case models.AccountTypeAsset:
			line.Amount = t.Debit.Sub(t.Credit)
			fp.Assets = append(fp.Assets, line)
			fp.TotalAssets = fp.TotalAssets.Add(line.Amount)
		case models.AccountTypeLiability:
			line.Amount = t.Credit.Sub(t.Debit)
			fp.Liabilities = append(fp.Liabilities, line)
			fp.TotalLiabilities = fp.TotalLiabilities.Add(line.Amount)
		case models.AccountTypeEquity:
			line.Amount = t.Credit.Sub(t.Debit)
			fp.Equity = append(fp.Equity, line)
			fp.TotalEquity = fp.TotalEquity.Add(line.Amount)
		case models.AccountTypeIncome:
			surplus = surplus.Add(t.Credit.Sub(t.Debit))
		case models.AccountTypeExpense:
			surplus = surplus.Sub(t.Debit.Sub(t.Credit))
		}
	}

	fp.Equity = append(fp.Equity, models.StatementLine{Code: "", Name: "Current Surplus", Amount: surplus})
	fp.TotalEquity = fp.TotalEquity.Add(surplus)

	fp.Difference = fp.TotalAssets.Sub(fp.TotalLiabilities.Add(fp.TotalEquity))
	fp.Balanced = fp.Difference.Abs().LessThanOrEqual(BalanceTolerance)
	return fp
}
