package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/optica-backoffice/cash-ledger/internal/api/service"
	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
)

// parseDate accepts a plain date or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// respondDomainError maps domain errors onto HTTP statuses. Unknown errors
// stay opaque 500s; the correlation id in the envelope is the debugging handle.
func respondDomainError(c *gin.Context, logger *slog.Logger, err error, logMsg string) {
	var dupErr register.ErrDuplicateForPeriod
	var notOpenErr register.ErrRegisterNotOpen

	switch {
	case errors.Is(err, register.ErrRegisterNotFound{}):
		RespondNotFound(c, "Cash register not found")
	case errors.Is(err, movement.ErrMovementNotFound{}):
		RespondNotFound(c, "Movement not found")
	case errors.As(err, &dupErr):
		RespondConflict(c, dupErr.Error())
	case errors.As(err, &notOpenErr):
		RespondUnprocessable(c, "REGISTER_NOT_OPEN", notOpenErr.Error())
	case errors.Is(err, register.ErrInsufficientFunds):
		RespondUnprocessable(c, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, register.ErrBankRegisterMissing):
		RespondUnprocessable(c, "BANK_REGISTER_REQUIRED", err.Error())
	case errors.Is(err, register.ErrAlreadyClosed):
		RespondConflict(c, err.Error())
	case errors.Is(err, service.ErrRegisterStillOpen):
		RespondConflict(c, err.Error())
	case errors.Is(err, service.ErrRegisterArchived):
		RespondConflict(c, err.Error())
	case errors.Is(err, register.ErrInvalidAmount),
		errors.Is(err, register.ErrNegativeBalance),
		errors.Is(err, register.ErrEmptyOwner):
		RespondBadRequest(c, err.Error())
	default:
		logger.Error(logMsg, "error", err)
		RespondInternalError(c)
	}
}
