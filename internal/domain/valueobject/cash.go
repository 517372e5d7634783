package valueobject

// Direction of a cash movement relative to the fund.
type Direction string

const (
	DirectionInflow  Direction = "INFLOW"
	DirectionOutflow Direction = "OUTFLOW"
)

// CashCategory classifies a cash movement for the liquidity and profit computations.
type CashCategory string

const (
	CategorySavings            CashCategory = "SAVINGS"
	CategoryAdminFee           CashCategory = "ADMIN_FEE"
	CategoryPenalty            CashCategory = "PENALTY"
	CategoryLoanInterest       CashCategory = "LOAN_INTEREST"
	CategoryLoanRepayment      CashCategory = "LOAN_REPAYMENT"
	CategoryOtherIncome        CashCategory = "OTHER_INCOME"
	CategoryOperatingExpense   CashCategory = "OPERATING_EXPENSE"
	CategorySecretarialExpense CashCategory = "SECRETARIAL_EXPENSE"
	CategoryWithdrawal         CashCategory = "WITHDRAWAL"
)

var categoryDirections = map[CashCategory]Direction{
	CategorySavings:            DirectionInflow,
	CategoryAdminFee:           DirectionInflow,
	CategoryPenalty:            DirectionInflow,
	CategoryLoanInterest:       DirectionInflow,
	CategoryLoanRepayment:      DirectionInflow,
	CategoryOtherIncome:        DirectionInflow,
	CategoryOperatingExpense:   DirectionOutflow,
	CategorySecretarialExpense: DirectionOutflow,
	CategoryWithdrawal:         DirectionOutflow,
}

// ParseCashCategory validates a raw category string.
func ParseCashCategory(s string) (CashCategory, error) {
	c := CashCategory(s)
	if _, ok := categoryDirections[c]; !ok {
		return "", Invalid("invalid cash category: %q", s)
	}
	return c, nil
}

// Direction returns whether the category brings cash in or takes it out.
func (c CashCategory) Direction() Direction { return categoryDirections[c] }

// IsSecretarial reports whether the category belongs to the ring-fenced
// secretarial reserve. Administrative fees fund the reserve.
func (c CashCategory) IsSecretarial() bool {
	return c == CategoryAdminFee || c == CategorySecretarialExpense
}

// IsProfitIncome reports whether the category counts toward distributable profit.
func (c CashCategory) IsProfitIncome() bool {
	return c == CategoryPenalty || c == CategoryLoanInterest
}

// ProfitIncomeCategories lists the categories summed as monthly profit income.
func ProfitIncomeCategories() []CashCategory {
	return []CashCategory{CategoryPenalty, CategoryLoanInterest}
}

// ManualCategories are the categories treasury may record directly; the rest
// are written only by payment approval, disbursement netting or withdrawals.
func ManualCategories() []CashCategory {
	return []CashCategory{CategoryOtherIncome, CategoryOperatingExpense, CategorySecretarialExpense}
}

// Concept is one line of a payment allocation breakdown.
type Concept string

const (
	ConceptPenalty        Concept = "PENALTY"
	ConceptAdminFee       Concept = "ADMIN_FEE"
	ConceptSavings        Concept = "SAVINGS"
	ConceptLoanInterest   Concept = "LOAN_INTEREST"
	ConceptLoanPrincipal  Concept = "LOAN_PRINCIPAL"
	ConceptSavingsSurplus Concept = "SAVINGS_SURPLUS"
)

var conceptCategories = map[Concept]CashCategory{
	ConceptPenalty:        CategoryPenalty,
	ConceptAdminFee:       CategoryAdminFee,
	ConceptSavings:        CategorySavings,
	ConceptLoanInterest:   CategoryLoanInterest,
	ConceptLoanPrincipal:  CategoryLoanRepayment,
	ConceptSavingsSurplus: CategorySavings,
}

// ParseConcept validates a raw concept string.
func ParseConcept(s string) (Concept, error) {
	c := Concept(s)
	if _, ok := conceptCategories[c]; !ok {
		return "", Invalid("invalid allocation concept: %q", s)
	}
	return c, nil
}

// CashCategory maps a breakdown concept to the ledger category it is booked under.
func (c Concept) CashCategory() CashCategory { return conceptCategories[c] }
