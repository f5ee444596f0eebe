package domain

// Raw column names expected in an uploaded banking dataset. Every name is
// optional; derivations and analyses adapt to whichever columns are present.
const (
	ColJoinedBank             = "Joined Bank"
	ColCheckingAccounts       = "Checking Accounts"
	ColSavingAccounts         = "Saving Accounts"
	ColForeignCurrencyAccount = "Foreign Currency Account"
	ColBankLoans              = "Bank Loans"
	ColCreditCardBalance      = "Credit Card Balance"
	ColEstimatedIncome        = "Estimated Income"
	ColBankDeposits           = "Bank Deposits"
	ColSuperannuationSavings  = "Superannuation Savings"
	ColPropertiesOwned        = "Properties Owned"
	ColAge                    = "Age"
	ColNationality            = "Nationality"
	ColLoyaltyClassification  = "Loyalty Classification"
	ColFeeStructure           = "Fee Structure"
)

// Derived column names. Reporting and modeling consumers read these by name,
// so they must not change.
const (
	ColCustomerTenure           = "Customer Tenure"
	ColTotalRelationshipBalance = "Total Relationship Balance"
	ColDebtToIncomeRatio        = "Debt-to-Income Ratio"
	ColDepositToLoanRatio       = "Deposit-to-Loan Ratio"
	ColWealthIndicator          = "Wealth Indicator"
	ColProductConcentration     = "Product Concentration"
	ColAgeXBalance              = "Age_x_Balance"
	ColAgeGroup                 = "Age Group"
	ColIncomeGroup              = "Income Group"
)

// IdentifierColumns are surrogate keys dropped before analysis.
var IdentifierColumns = []string{"Location ID", "BRId", "GenderId", "IAId"}

// BalanceColumns are summed into the Total Relationship Balance.
var BalanceColumns = []string{
	ColCheckingAccounts,
	ColSavingAccounts,
	ColForeignCurrencyAccount,
}

// FinancialColumns are profiled by the distributions analysis.
var FinancialColumns = []string{
	ColEstimatedIncome,
	ColBankDeposits,
	ColBankLoans,
}

// ProductColumns are the product balances counted by Product Concentration.
var ProductColumns = []string{
	ColCheckingAccounts,
	ColSavingAccounts,
	ColForeignCurrencyAccount,
	ColCreditCardBalance,
	ColBankLoans,
	ColBankDeposits,
}
