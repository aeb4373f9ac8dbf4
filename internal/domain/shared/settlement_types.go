package shared

// SettlementKind defines the direction of a cross-ledger settlement
type SettlementKind string

const (
	// SettlementKindSettle pushes a closed petty drawer's balance into its
	// bank register as an income entry.
	SettlementKindSettle SettlementKind = "SETTLEMENT"
	// SettlementKindReverse compensates a previously applied settlement when
	// the petty drawer is archived.
	SettlementKindReverse SettlementKind = "REVERSAL"
)

// SettlementStatus defines settlement journal states
type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "PENDING"
	SettlementStatusApplied SettlementStatus = "APPLIED"
	SettlementStatusFailed  SettlementStatus = "FAILED"
)

// FailureReason defines settlement failure categories
type FailureReason string

const (
	FailureReasonBankRegisterNotFound FailureReason = "BANK_REGISTER_NOT_FOUND"
	FailureReasonPettyRegisterGone    FailureReason = "PETTY_REGISTER_NOT_FOUND"
	FailureReasonInsufficientFunds    FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonInvalidAmount        FailureReason = "INVALID_AMOUNT"
	FailureReasonSettlementNotApplied FailureReason = "SETTLEMENT_NOT_APPLIED"
	FailureReasonUnknownError         FailureReason = "UNKNOWN_ERROR"
)
