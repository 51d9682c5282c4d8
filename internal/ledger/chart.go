package ledger

import "society-billing/internal/models"

// Standard account codes created for every society
const (
	CodeCash              = "1000"
	CodeBank              = "1010"
	CodeGatewayClearing   = "1020"
	CodeReceivable        = "1100"
	CodeGSTPayable        = "2100"
	CodeMemberAdvances    = "2200"
	CodeCorpusFund        = "3000"
	CodeMaintenanceIncome = "4000"
	CodeInterestIncome    = "4100"
	CodeGeneralExpenses   = "5000"
)

// DefaultChart returns the accounts a society gets at onboarding.
func DefaultChart(societyID int64) []models.Account {
	chart := []models.Account{
		{Code: CodeCash, Name: "Cash in Hand", Type: models.AccountTypeAsset},
		{Code: CodeBank, Name: "Bank Account", Type: models.AccountTypeAsset},
		{Code: CodeGatewayClearing, Name: "Payment Gateway Clearing", Type: models.AccountTypeAsset},
		{Code: CodeReceivable, Name: "Accounts Receivable", Type: models.AccountTypeAsset},
		{Code: CodeGSTPayable, Name: "GST Payable", Type: models.AccountTypeLiability},
		{Code: CodeMemberAdvances, Name: "Member Advances", Type: models.AccountTypeLiability},
		{Code: CodeCorpusFund, Name: "Corpus Fund", Type: models.AccountTypeEquity},
		{Code: CodeMaintenanceIncome, Name: "Maintenance Income", Type: models.AccountTypeIncome},
		{Code: CodeInterestIncome, Name: "Interest Income", Type: models.AccountTypeIncome},
		{Code: CodeGeneralExpenses, Name: "General Expenses", Type: models.AccountTypeExpense},
	}
	for i := range chart {
		chart[i].SocietyID = societyID
	}
	return chart
}

// DebitAccountFor maps a payment method to the asset account the money lands in.
func DebitAccountFor(method models.PaymentMethod) string {
	switch method {
	case models.MethodCash:
		return CodeCash
	case models.MethodRazorpay:
		return CodeGatewayClearing
	default:
		return CodeBank
	}
}
