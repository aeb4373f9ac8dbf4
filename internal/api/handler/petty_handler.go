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

// PettyCashHandler handles HTTP requests for petty cash drawer operations
type PettyCashHandler struct {
	pettyService service.PettyCashService
	logger       *slog.Logger
}

// NewPettyCashHandler creates a new petty cash handler
func NewPettyCashHandler(logger *slog.Logger, pettyService service.PettyCashService) *PettyCashHandler {
	return &PettyCashHandler{
		pettyService: pettyService,
		logger:       logger,
	}
}

// Open creates the petty cash register for a day
func (h *PettyCashHandler) Open(c *gin.Context) {
	var req OpenPettyRegisterRequest
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

	reg, err := h.pettyService.Open(c.Request.Context(), date, req.InitialBalance, req.OwnerID, req.OwnerName, req.Note)
	if err != nil {
		h.respondError(c, err, "Failed to open petty register")
		return
	}

	RespondCreated(c, mapRegisterToResponse(reg))
}

// GetByID retrieves a petty register by its ID, archived included
func (h *PettyCashHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	reg, err := h.pettyService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get petty register")
		return
	}

	RespondOK(c, mapRegisterToResponse(reg))
}

// Current returns the currently open petty register, 404 when none
func (h *PettyCashHandler) Current(c *gin.Context) {
	reg, err := h.pettyService.CurrentOpen(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Failed to resolve current petty register")
		return
	}
	if reg == nil {
		RespondNotFound(c, "No open petty register")
		return
	}

	RespondOK(c, mapRegisterToResponse(reg))
}

// List returns paginated active petty registers
func (h *PettyCashHandler) List(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	regs, total, err := h.pettyService.List(c.Request.Context(), pagination.Page, pagination.PerPage)
	if err != nil {
		h.respondError(c, err, "Failed to list petty registers")
		return
	}

	var responses []RegisterResponse
	for _, reg := range regs {
		responses = append(responses, mapRegisterToResponse(reg))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// CreateMovement records a movement against an open petty register
func (h *PettyCashHandler) CreateMovement(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req PettyMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	mov, err := h.pettyService.RegisterMovement(c.Request.Context(), id, service.MovementInput{
		Direction:     register.Direction(req.Direction),
		Amount:        req.Amount,
		Description:   req.Description,
		CreatedByID:   req.CreatedByID,
		CreatedByName: req.CreatedByName,
		CorrelationID: middleware.GetCorrelationID(c),
	})
	if err != nil {
		h.respondError(c, err, "Failed to register petty movement")
		return
	}

	RespondCreated(c, mapMovementToResponse(mov))
}

// Movements returns the paginated movement history of a petty register
func (h *PettyCashHandler) Movements(c *gin.Context) {
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

	movs, total, err := h.pettyService.Movements(c.Request.Context(), id, pagination.Page, pagination.PerPage)
	if err != nil {
		h.respondError(c, err, "Failed to get petty movements")
		return
	}

	var responses []MovementResponse
	for _, mov := range movs {
		responses = append(responses, mapMovementToResponse(mov))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// Close closes a petty register and triggers its settlement
func (h *PettyCashHandler) Close(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	// The body is optional; closing without a counted balance is the
	// common case.
	var req CloseRegisterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	reg, err := h.pettyService.Close(c.Request.Context(), id, req.FinalBalance, middleware.GetCorrelationID(c))
	if err != nil {
		h.respondError(c, err, "Failed to close petty register")
		return
	}

	RespondOK(c, mapRegisterToResponse(reg))
}

// Settle enqueues the settlement of a closed petty register
func (h *PettyCashHandler) Settle(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	task, err := h.pettyService.Settle(c.Request.Context(), id, middleware.GetCorrelationID(c))
	if err != nil {
		h.respondError(c, err, "Failed to settle petty register")
		return
	}

	RespondAccepted(c, SettlementTaskResponse{
		TaskID:         task.ID,
		Kind:           string(task.Kind),
		Status:         string(task.Status),
		BankRegisterID: task.BankRegisterID.String(),
		Amount:         task.Amount,
	})
}

// Archive soft-deletes a petty register
func (h *PettyCashHandler) Archive(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.pettyService.Archive(c.Request.Context(), id, middleware.GetCorrelationID(c)); err != nil {
		h.respondError(c, err, "Failed to archive petty register")
		return
	}

	RespondNoContent(c)
}

// Restore reactivates an archived petty register
func (h *PettyCashHandler) Restore(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.pettyService.Restore(c.Request.Context(), id, middleware.GetCorrelationID(c)); err != nil {
		h.respondError(c, err, "Failed to restore petty register")
		return
	}

	RespondNoContent(c)
}

func (h *PettyCashHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid register ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid register ID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *PettyCashHandler) respondError(c *gin.Context, err error, logMsg string) {
	respondDomainError(c, h.logger, err, logMsg)
}

// mapRegisterToResponse maps a cash register to its response DTO
func mapRegisterToResponse(reg *register.CashRegister) RegisterResponse {
	response := RegisterResponse{
		ID:             reg.ID.String(),
		Kind:           string(reg.Kind),
		PeriodStart:    reg.PeriodStart.Format("2006-01-02"),
		InitialBalance: reg.InitialBalance,
		CurrentBalance: reg.CurrentBalance,
		State:          string(reg.State),
		Lifecycle:      string(reg.Lifecycle),
		OwnerID:        reg.OwnerID,
		OwnerName:      reg.OwnerName,
		Note:           reg.Note,
		CreatedAt:      reg.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      reg.UpdatedAt.Format(time.RFC3339),
	}

	if reg.BankRegisterID != nil {
		response.BankRegisterID = reg.BankRegisterID.String()
	}
	if reg.ClosedAt != nil {
		response.ClosedAt = reg.ClosedAt.Format(time.RFC3339)
	}

	return response
}

// mapMovementToResponse maps a movement to its response DTO
func mapMovementToResponse(mov *movement.Movement) MovementResponse {
	response := MovementResponse{
		ID:            mov.ID.String(),
		RegisterKind:  string(mov.RegisterKind),
		Date:          mov.Date.Format(time.RFC3339),
		Direction:     string(mov.Direction),
		Category:      string(mov.Category),
		Description:   mov.Description,
		Amount:        mov.Amount,
		BalanceBefore: mov.BalanceBefore,
		BalanceAfter:  mov.BalanceAfter,
		Reference:     mov.Reference,
		CreatedByID:   mov.CreatedByID,
		CreatedByName: mov.CreatedByName,
		CreatedAt:     mov.CreatedAt.Format(time.RFC3339),
	}

	if mov.RegisterID != nil {
		response.RegisterID = mov.RegisterID.String()
	}

	return response
}
