package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/optica-backoffice/cash-ledger/internal/api/middleware"
	"github.com/optica-backoffice/cash-ledger/internal/api/service"
	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
)

// BankCashHandler handles HTTP requests for bank register operations
type BankCashHandler struct {
	bankService service.BankCashService
	logger      *slog.Logger
}

// NewBankCashHandler creates a new bank register handler
func NewBankCashHandler(logger *slog.Logger, bankService service.BankCashService) *BankCashHandler {
	return &BankCashHandler{
		bankService: bankService,
		logger:      logger,
	}
}

// OpenOrUpdate creates the register for the month of the given date, or
// updates the existing one (upsert keyed on the month)
func (h *BankCashHandler) OpenOrUpdate(c *gin.Context) {
	var req OpenBankRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		h.logger.Error("Invalid date", "date", req.Date, "error", err)
		RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	reg, err := h.bankService.OpenOrUpdate(
		c.Request.Context(),
		date,
		req.InitialBalance,
		register.State(req.State),
		req.OwnerID,
		req.OwnerName,
		req.Note,
	)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to open or update bank register")
		return
	}

	RespondOK(c, mapRegisterToResponse(reg))
}

// GetByID retrieves a bank register by its ID, archived included
func (h *BankCashHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	reg, err := h.bankService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to get bank register")
		return
	}

	RespondOK(c, mapRegisterToResponse(reg))
}

// List returns paginated active bank registers
func (h *BankCashHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	regs, total, err := h.bankService.List(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to list bank registers")
		return
	}

	var responses []RegisterResponse
	for _, reg := range regs {
		responses = append(responses, mapRegisterToResponse(reg))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// CreateMovement records a bank movement, attached or unattached
func (h *BankCashHandler) CreateMovement(c *gin.Context) {
	var req BankMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	var registerID *uuid.UUID
	if req.RegisterID != nil {
		id, err := uuid.Parse(*req.RegisterID)
		if err != nil {
			h.logger.Error("Invalid register ID", "id", *req.RegisterID, "error", err)
			RespondBadRequest(c, "Invalid register ID")
			return
		}
		registerID = &id
	}

	input := service.MovementInput{
		Direction:     register.Direction(req.Direction),
		Category:      movement.Category(req.Category),
		Amount:        req.Amount,
		Description:   req.Description,
		CreatedByID:   req.CreatedByID,
		CreatedByName: req.CreatedByName,
		CorrelationID: middleware.GetCorrelationID(c),
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			h.logger.Error("Invalid movement date", "date", req.Date, "error", err)
			RespondBadRequest(c, "Invalid date, expected YYYY-MM-DD")
			return
		}
		input.Date = date
	}

	mov, err := h.bankService.RegisterMovement(c.Request.Context(), registerID, input)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to register bank movement")
		return
	}

	RespondCreated(c, mapMovementToResponse(mov))
}

// Movements returns the paginated movement history of a bank register
func (h *BankCashHandler) Movements(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	movs, total, err := h.bankService.Movements(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to get bank movements")
		return
	}

	var responses []MovementResponse
	for _, mov := range movs {
		responses = append(responses, mapMovementToResponse(mov))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Reconcile binds the register's unattached movements in chronological order
func (h *BankCashHandler) Reconcile(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	attached, err := h.bankService.ReconcileUnattached(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to reconcile unattached movements")
		return
	}

	RespondOK(c, gin.H{"attached": attached})
}

// CloseMonth runs the month-close rollover for an explicit year and month
func (h *BankCashHandler) CloseMonth(c *gin.Context) {
	var req CloseMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	successor, err := h.bankService.CloseFullMonth(c.Request.Context(), req.Year, time.Month(req.Month))
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to close month")
		return
	}

	if successor == nil {
		RespondOK(c, gin.H{"successor": nil})
		return
	}
	RespondOK(c, gin.H{"successor": mapRegisterToResponse(successor)})
}

// CloseExpired sweeps every past month that still has open registers
func (h *BankCashHandler) CloseExpired(c *gin.Context) {
	closed, err := h.bankService.CloseExpiredMonths(c.Request.Context())
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to close expired months")
		return
	}

	RespondOK(c, gin.H{"months_closed": closed})
}

// VerifyBalance reports the stored balance against the recomputed one
func (h *BankCashHandler) VerifyBalance(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	report, err := h.bankService.VerifyBalance(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to verify bank balance")
		return
	}

	RespondOK(c, report)
}

// RepairBalance overwrites an inconsistent stored balance
func (h *BankCashHandler) RepairBalance(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	report, err := h.bankService.RepairBalance(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, h.logger, err, "Failed to repair bank balance")
		return
	}

	RespondOK(c, report)
}

func (h *BankCashHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid register ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid register ID")
		return uuid.Nil, false
	}
	return id, true
}
