// Package components holds the building blocks of settlement processing. The
// applier owns the bank register mutation; everything journal-related stays in
// the processing service.
package components

import (
	"log/slog"

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
	"github.com/optica-backoffice/cash-ledger/internal/settlement_worker/service"
)

// Factory creates the processing components with their shared dependencies
type Factory struct {
	bankRegs register.Repository
	bankMovs movement.Repository
	logger   *slog.Logger
}

// NewFactory creates a new component factory
func NewFactory(logger *slog.Logger, bankRegs register.Repository, bankMovs movement.Repository) *Factory {
	return &Factory{
		bankRegs: bankRegs,
		bankMovs: bankMovs,
		logger:   logger,
	}
}

// CreateSettlementApplier creates the bank register applier
func (f *Factory) CreateSettlementApplier() service.SettlementApplier {
	return NewBankApplier(f.logger, f.bankRegs, f.bankMovs)
}
