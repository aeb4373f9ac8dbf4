package handler

// OpenPettyRegisterRequest represents a request to open the day's petty cash register
type OpenPettyRegisterRequest struct {
	Date           string `json:"date" binding:"required"` // YYYY-MM-DD
	InitialBalance int64  `json:"initial_balance" binding:"min=0"`
	OwnerID        string `json:"owner_id" binding:"required"`
	OwnerName      string `json:"owner_name"`
	Note           string `json:"note"`
}

// OpenBankRegisterRequest represents a request to create or update a monthly bank register
type OpenBankRegisterRequest struct {
	Date           string `json:"date" binding:"required"` // Any day of the target month, YYYY-MM-DD
	InitialBalance *int64 `json:"initial_balance" binding:"omitempty,min=0"`
	State          string `json:"state" binding:"omitempty,oneof=OPEN CLOSED"`
	OwnerID        string `json:"owner_id" binding:"required"`
	OwnerName      string `json:"owner_name"`
	Note           string `json:"note"`
}

// PettyMovementRequest represents a request to record a petty cash movement
type PettyMovementRequest struct {
	Direction     string `json:"direction" binding:"required,oneof=INCOME EXPENSE"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	Description   string `json:"description"`
	CreatedByID   string `json:"created_by_id" binding:"required"`
	CreatedByName string `json:"created_by_name"`
}

// BankMovementRequest represents a request to record a bank movement. A nil
// register_id stores the movement unattached for later reconciliation.
// Settlement categories are engine-owned and cannot be submitted here.
type BankMovementRequest struct {
	RegisterID    *string `json:"register_id" binding:"omitempty,uuid"`
	Direction     string  `json:"direction" binding:"required,oneof=INCOME EXPENSE"`
	Category      string  `json:"category" binding:"omitempty,oneof=CLIENT_TRANSFER WORKER_PAYMENT OTHER"`
	Amount        int64   `json:"amount" binding:"required,gt=0"`
	Description   string  `json:"description"`
	Date          string  `json:"date"` // Optional movement date, YYYY-MM-DD
	CreatedByID   string  `json:"created_by_id" binding:"required"`
	CreatedByName string  `json:"created_by_name"`
}

// CloseRegisterRequest represents a request to close a petty register,
// optionally overriding the final balance with the counted amount
type CloseRegisterRequest struct {
	FinalBalance *int64 `json:"final_balance" binding:"omitempty,min=0"`
}

// CloseMonthRequest represents a request to run the month-close rollover
type CloseMonthRequest struct {
	Year  int `json:"year" binding:"required,min=2000,max=2100"`
	Month int `json:"month" binding:"required,min=1,max=12"`
}

// RegisterResponse represents a cash register in API responses
type RegisterResponse struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	PeriodStart    string `json:"period_start"`
	InitialBalance int64  `json:"initial_balance"`
	CurrentBalance int64  `json:"current_balance"`
	State          string `json:"state"`
	Lifecycle      string `json:"lifecycle"`
	OwnerID        string `json:"owner_id"`
	OwnerName      string `json:"owner_name,omitempty"`
	Note           string `json:"note,omitempty"`
	BankRegisterID string `json:"bank_register_id,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	ClosedAt       string `json:"closed_at,omitempty"`
}

// MovementResponse represents a movement in API responses
type MovementResponse struct {
	ID            string `json:"id"`
	RegisterID    string `json:"register_id,omitempty"`
	RegisterKind  string `json:"register_kind"`
	Date          string `json:"date"`
	Direction     string `json:"direction"`
	Category      string `json:"category,omitempty"`
	Description   string `json:"description,omitempty"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	Reference     string `json:"reference,omitempty"`
	CreatedByID   string `json:"created_by_id"`
	CreatedByName string `json:"created_by_name,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// SettlementTaskResponse represents a settlement journal task in API responses
type SettlementTaskResponse struct {
	TaskID         int64  `json:"task_id"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	BankRegisterID string `json:"bank_register_id"`
	Amount         int64  `json:"amount"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
