package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
	"github.com/optica-backoffice/cash-ledger/internal/domain/settlement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/shared"
)

type MockRegisterRepository struct {
	mock.Mock
}

func (m *MockRegisterRepository) Create(ctx context.Context, reg *register.CashRegister) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockRegisterRepository) GetByID(ctx context.Context, id uuid.UUID) (*register.CashRegister, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*register.CashRegister), args.Error(1)
}

func (m *MockRegisterRepository) Update(ctx context.Context, reg *register.CashRegister) error {
	args := m.Called(ctx, reg)
	return args.Error(0)
}

func (m *MockRegisterRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance int64) error {
	args := m.Called(ctx, id, balance)
	return args.Error(0)
}

func (m *MockRegisterRepository) FindByPeriodStart(ctx context.Context, periodStart time.Time) (*register.CashRegister, error) {
	args := m.Called(ctx, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*register.CashRegister), args.Error(1)
}

func (m *MockRegisterRepository) FindOpenInMonth(ctx context.Context, monthStart time.Time) ([]*register.CashRegister, error) {
	args := m.Called(ctx, monthStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*register.CashRegister), args.Error(1)
}

func (m *MockRegisterRepository) FindAllOpen(ctx context.Context) ([]*register.CashRegister, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*register.CashRegister), args.Error(1)
}

func (m *MockRegisterRepository) FindLatestClosedInMonth(ctx context.Context, monthStart time.Time) (*register.CashRegister, error) {
	args := m.Called(ctx, monthStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*register.CashRegister), args.Error(1)
}

func (m *MockRegisterRepository) FindClosedActiveByBankID(ctx context.Context, bankID uuid.UUID) ([]*register.CashRegister, error) {
	args := m.Called(ctx, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*register.CashRegister), args.Error(1)
}

func (m *MockRegisterRepository) ListActive(ctx context.Context, limit, offset int) ([]*register.CashRegister, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*register.CashRegister), args.Error(1)
}

func (m *MockRegisterRepository) CountActive(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRegisterRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) Create(ctx context.Context, mov *movement.Movement) error {
	args := m.Called(ctx, mov)
	return args.Error(0)
}

func (m *MockMovementRepository) GetByID(ctx context.Context, id uuid.UUID) (*movement.Movement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.Movement), args.Error(1)
}

func (m *MockMovementRepository) GetByRegisterID(ctx context.Context, registerID uuid.UUID, limit, offset int) ([]*movement.Movement, error) {
	args := m.Called(ctx, registerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*movement.Movement), args.Error(1)
}

func (m *MockMovementRepository) CountByRegisterID(ctx context.Context, registerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, registerID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMovementRepository) GetByReference(ctx context.Context, reference string) (*movement.Movement, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*movement.Movement), args.Error(1)
}

func (m *MockMovementRepository) FindUnattachedInRange(ctx context.Context, from, to time.Time) ([]*movement.Movement, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*movement.Movement), args.Error(1)
}

func (m *MockMovementRepository) Attach(ctx context.Context, movementID, registerID uuid.UUID, before, after int64) error {
	args := m.Called(ctx, movementID, registerID, before, after)
	return args.Error(0)
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) Create(ctx context.Context, task *settlement.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockSettlementRepository) GetByID(ctx context.Context, id int64) (*settlement.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settlement.Task), args.Error(1)
}

func (m *MockSettlementRepository) GetPending(ctx context.Context, limit int) ([]*settlement.Task, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Task), args.Error(1)
}

func (m *MockSettlementRepository) GetByPettyRegisterID(ctx context.Context, pettyID uuid.UUID) ([]*settlement.Task, error) {
	args := m.Called(ctx, pettyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*settlement.Task), args.Error(1)
}

func (m *MockSettlementRepository) UpdateStatus(ctx context.Context, id int64, status shared.SettlementStatus, reason string) error {
	args := m.Called(ctx, id, status, reason)
	return args.Error(0)
}

func (m *MockSettlementRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSettlementRepository) WithTx(tx pgx.Tx) settlement.Repository {
	args := m.Called(tx)
	return args.Get(0).(settlement.Repository)
}

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}
