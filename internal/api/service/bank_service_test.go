package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/optica-backoffice/cash-ledger/internal/domain/movement"
	"github.com/optica-backoffice/cash-ledger/internal/domain/register"
)

func newBankServiceForTest() (*BankCashServiceImpl, *MockRegisterRepository, *MockMovementRepository, *MockRegisterRepository) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	bankRegs := new(MockRegisterRepository)
	bankMovs := new(MockMovementRepository)
	pettyRegs := new(MockRegisterRepository)

	svc := NewBankCashService(logger, bankRegs, bankMovs, pettyRegs).(*BankCashServiceImpl)
	return svc, bankRegs, bankMovs, pettyRegs
}

func openBankRegister(t *testing.T, date time.Time, balance int64) *register.CashRegister {
	t.Helper()
	reg, err := register.NewBankRegister(date, balance, register.StateOpen, "user-1", "Maria", "")
	assert.NoError(t, err)
	return reg
}

func TestBankOpenOrUpdate(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("CreateWithExplicitBalance", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		balance := int64(500000)

		bankRegs.On("FindByPeriodStart", ctx, monthStart).Return(nil, nil).Once()
		bankRegs.On("Create", ctx, mock.AnythingOfType("*register.CashRegister")).Return(nil).Once()

		reg, err := svc.OpenOrUpdate(ctx, date, &balance, register.StateOpen, "user-1", "Maria", "")

		assert.NoError(t, err)
		assert.Equal(t, register.KindBank, reg.Kind)
		assert.Equal(t, monthStart, reg.PeriodStart)
		assert.Equal(t, int64(500000), reg.InitialBalance)
		bankRegs.AssertExpectations(t)
	})

	t.Run("CreateInheritsPreviousMonthClose", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		prev := openBankRegister(t, prevMonthStart, 100000)
		prev.CurrentBalance = 123400
		assert.NoError(t, prev.Close(nil))

		bankRegs.On("FindByPeriodStart", ctx, monthStart).Return(nil, nil).Once()
		bankRegs.On("FindLatestClosedInMonth", ctx, prevMonthStart).Return(prev, nil).Once()
		bankRegs.On("Create", ctx, mock.AnythingOfType("*register.CashRegister")).Return(nil).Once()

		reg, err := svc.OpenOrUpdate(ctx, date, nil, register.StateOpen, "user-1", "Maria", "")

		assert.NoError(t, err)
		assert.Equal(t, int64(123400), reg.InitialBalance)
		assert.Equal(t, int64(123400), reg.CurrentBalance)
	})

	t.Run("CreateFallsBackToZero", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()

		bankRegs.On("FindByPeriodStart", ctx, monthStart).Return(nil, nil).Once()
		bankRegs.On("FindLatestClosedInMonth", ctx, prevMonthStart).Return(nil, nil).Once()
		bankRegs.On("Create", ctx, mock.AnythingOfType("*register.CashRegister")).Return(nil).Once()

		reg, err := svc.OpenOrUpdate(ctx, date, nil, register.StateOpen, "user-1", "Maria", "")

		assert.NoError(t, err)
		assert.Equal(t, int64(0), reg.InitialBalance)
	})

	t.Run("UpdateShiftsBalanceByDelta", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		existing := openBankRegister(t, monthStart, 100000)
		existing.CurrentBalance = 140000 // movements recorded since opening
		newInitial := int64(120000)

		bankRegs.On("FindByPeriodStart", ctx, monthStart).Return(existing, nil).Once()
		bankRegs.On("Update", ctx, existing).Return(nil).Once()

		reg, err := svc.OpenOrUpdate(ctx, date, &newInitial, register.StateOpen, "user-1", "Maria", "")

		assert.NoError(t, err)
		assert.Equal(t, int64(120000), reg.InitialBalance)
		assert.Equal(t, int64(160000), reg.CurrentBalance)
	})

	t.Run("UpdateCanCloseTheMonth", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		existing := openBankRegister(t, monthStart, 100000)

		bankRegs.On("FindByPeriodStart", ctx, monthStart).Return(existing, nil).Once()
		bankRegs.On("Update", ctx, existing).Return(nil).Once()

		reg, err := svc.OpenOrUpdate(ctx, date, nil, register.StateClosed, "user-1", "Maria", "")

		assert.NoError(t, err)
		assert.Equal(t, register.StateClosed, reg.State)
		assert.NotNil(t, reg.ClosedAt)
	})

	t.Run("ReopeningClosedMonthRejected", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		existing := openBankRegister(t, monthStart, 100000)
		assert.NoError(t, existing.Close(nil))

		bankRegs.On("FindByPeriodStart", ctx, monthStart).Return(existing, nil).Once()

		_, err := svc.OpenOrUpdate(ctx, date, nil, register.StateOpen, "user-1", "Maria", "")

		assert.ErrorIs(t, err, register.ErrAlreadyClosed)
		bankRegs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("ArchivedMonthRejected", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		existing := openBankRegister(t, monthStart, 100000)
		existing.Archive()

		bankRegs.On("FindByPeriodStart", ctx, monthStart).Return(existing, nil).Once()

		_, err := svc.OpenOrUpdate(ctx, date, nil, register.StateOpen, "user-1", "Maria", "")

		assert.ErrorIs(t, err, ErrRegisterArchived)
	})
}

func TestBankRegisterMovement(t *testing.T) {
	ctx := context.Background()

	t.Run("AttachedSuccess", func(t *testing.T) {
		svc, bankRegs, bankMovs, _ := newBankServiceForTest()
		reg := openBankRegister(t, time.Now(), 500000)

		bankRegs.On("GetByID", ctx, reg.ID).Return(reg, nil).Once()
		bankMovs.On("Create", ctx, mock.AnythingOfType("*movement.Movement")).Return(nil).Once()
		bankRegs.On("UpdateBalance", ctx, reg.ID, int64(480000)).Return(nil).Once()

		mov, err := svc.RegisterMovement(ctx, &reg.ID, MovementInput{
			Direction:   register.DirectionExpense,
			Category:    movement.CategoryWorkerPayment,
			Amount:      20000,
			Description: "lab technician",
		})

		assert.NoError(t, err)
		assert.True(t, mov.Attached())
		assert.Equal(t, movement.CategoryWorkerPayment, mov.Category)
		assert.Equal(t, int64(480000), mov.BalanceAfter)
		bankRegs.AssertExpectations(t)
	})

	t.Run("AttachedOverdraftRejected", func(t *testing.T) {
		svc, bankRegs, bankMovs, _ := newBankServiceForTest()
		reg := openBankRegister(t, time.Now(), 1000)

		bankRegs.On("GetByID", ctx, reg.ID).Return(reg, nil).Once()

		_, err := svc.RegisterMovement(ctx, &reg.ID, MovementInput{
			Direction: register.DirectionExpense,
			Amount:    5000,
		})

		assert.ErrorIs(t, err, register.ErrInsufficientFunds)
		assert.Equal(t, int64(1000), reg.CurrentBalance)
		bankMovs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("UnattachedPersistsWithoutBalanceEffect", func(t *testing.T) {
		svc, bankRegs, bankMovs, _ := newBankServiceForTest()

		bankMovs.On("Create", ctx, mock.AnythingOfType("*movement.Movement")).Return(nil).Once()

		mov, err := svc.RegisterMovement(ctx, nil, MovementInput{
			Direction:   register.DirectionIncome,
			Category:    movement.CategoryClientTransfer,
			Amount:      30000,
			Description: "transfer, settlement date unknown",
		})

		assert.NoError(t, err)
		assert.False(t, mov.Attached())
		assert.Equal(t, int64(0), mov.BalanceBefore)
		assert.Equal(t, int64(0), mov.BalanceAfter)
		bankRegs.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		bankRegs.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ClosedRegisterRejected", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		reg := openBankRegister(t, time.Now(), 500000)
		assert.NoError(t, reg.Close(nil))

		bankRegs.On("GetByID", ctx, reg.ID).Return(reg, nil).Once()

		_, err := svc.RegisterMovement(ctx, &reg.ID, MovementInput{
			Direction: register.DirectionIncome,
			Amount:    100,
		})

		var notOpen register.ErrRegisterNotOpen
		assert.ErrorAs(t, err, &notOpen)
	})
}

func TestBankReconcileUnattached(t *testing.T) {
	ctx := context.Background()
	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("AttachesInOrderSkippingOverdraft", func(t *testing.T) {
		svc, bankRegs, bankMovs, _ := newBankServiceForTest()
		reg := openBankRegister(t, monthStart, 10000)

		income := movement.NewUnattached(register.DirectionIncome, movement.CategoryClientTransfer, 5000, "")
		tooBig := movement.NewUnattached(register.DirectionExpense, movement.CategoryOther, 99999, "")
		expense := movement.NewUnattached(register.DirectionExpense, movement.CategoryWorkerPayment, 3000, "")

		bankRegs.On("GetByID", ctx, reg.ID).Return(reg, nil).Once()
		bankMovs.On("FindUnattachedInRange", ctx, monthStart, nextMonth).Return([]*movement.Movement{income, tooBig, expense}, nil).Once()
		bankMovs.On("Attach", ctx, income.ID, reg.ID, int64(10000), int64(15000)).Return(nil).Once()
		bankMovs.On("Attach", ctx, expense.ID, reg.ID, int64(15000), int64(12000)).Return(nil).Once()
		bankRegs.On("UpdateBalance", ctx, reg.ID, int64(12000)).Return(nil).Once()

		attached, err := svc.ReconcileUnattached(ctx, reg.ID)

		assert.NoError(t, err)
		assert.Equal(t, 2, attached)
		assert.Equal(t, int64(12000), reg.CurrentBalance)
		bankMovs.AssertExpectations(t)
		bankRegs.AssertExpectations(t)
	})

	t.Run("AttachFailureRollsBackRunningBalance", func(t *testing.T) {
		svc, bankRegs, bankMovs, _ := newBankServiceForTest()
		reg := openBankRegister(t, monthStart, 10000)

		first := movement.NewUnattached(register.DirectionIncome, movement.CategoryOther, 5000, "")
		second := movement.NewUnattached(register.DirectionIncome, movement.CategoryOther, 1000, "")

		bankRegs.On("GetByID", ctx, reg.ID).Return(reg, nil).Once()
		bankMovs.On("FindUnattachedInRange", ctx, monthStart, nextMonth).Return([]*movement.Movement{first, second}, nil).Once()
		bankMovs.On("Attach", ctx, first.ID, reg.ID, int64(10000), int64(15000)).Return(errors.New("write conflict")).Once()
		bankMovs.On("Attach", ctx, second.ID, reg.ID, int64(10000), int64(11000)).Return(nil).Once()
		bankRegs.On("UpdateBalance", ctx, reg.ID, int64(11000)).Return(nil).Once()

		attached, err := svc.ReconcileUnattached(ctx, reg.ID)

		assert.NoError(t, err)
		assert.Equal(t, 1, attached)
		assert.Equal(t, int64(11000), reg.CurrentBalance)
	})

	t.Run("NothingToReconcile", func(t *testing.T) {
		svc, bankRegs, bankMovs, _ := newBankServiceForTest()
		reg := openBankRegister(t, monthStart, 10000)

		bankRegs.On("GetByID", ctx, reg.ID).Return(reg, nil).Once()
		bankMovs.On("FindUnattachedInRange", ctx, monthStart, nextMonth).Return([]*movement.Movement{}, nil).Once()

		attached, err := svc.ReconcileUnattached(ctx, reg.ID)

		assert.NoError(t, err)
		assert.Equal(t, 0, attached)
		bankRegs.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBankCloseFullMonth(t *testing.T) {
	ctx := context.Background()
	monthStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("ClosesAndOpensSuccessor", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		reg := openBankRegister(t, monthStart, 100000)
		reg.CurrentBalance = 150000

		bankRegs.On("FindOpenInMonth", ctx, monthStart).Return([]*register.CashRegister{reg}, nil).Once()
		bankRegs.On("Update", ctx, reg).Return(nil).Once()
		bankRegs.On("FindByPeriodStart", ctx, nextMonth).Return(nil, nil).Once()
		bankRegs.On("Create", ctx, mock.MatchedBy(func(successor *register.CashRegister) bool {
			return successor.PeriodStart.Equal(nextMonth) &&
				successor.InitialBalance == 150000 &&
				successor.State == register.StateOpen &&
				successor.OwnerID == reg.OwnerID
		})).Return(nil).Once()

		successor, err := svc.CloseFullMonth(ctx, 2026, time.March)

		assert.NoError(t, err)
		assert.Equal(t, register.StateClosed, reg.State)
		assert.NotNil(t, successor)
		assert.Equal(t, int64(150000), successor.InitialBalance)
		bankRegs.AssertExpectations(t)
	})

	t.Run("NoSuccessorWhenNextMonthExists", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		reg := openBankRegister(t, monthStart, 100000)
		next := openBankRegister(t, nextMonth, 0)

		bankRegs.On("FindOpenInMonth", ctx, monthStart).Return([]*register.CashRegister{reg}, nil).Once()
		bankRegs.On("Update", ctx, reg).Return(nil).Once()
		bankRegs.On("FindByPeriodStart", ctx, nextMonth).Return(next, nil).Once()

		successor, err := svc.CloseFullMonth(ctx, 2026, time.March)

		assert.NoError(t, err)
		assert.Nil(t, successor)
		bankRegs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("NothingOpenIsNoOp", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()

		bankRegs.On("FindOpenInMonth", ctx, monthStart).Return([]*register.CashRegister{}, nil).Once()

		successor, err := svc.CloseFullMonth(ctx, 2026, time.March)

		assert.NoError(t, err)
		assert.Nil(t, successor)
		bankRegs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestBankCloseExpiredMonths(t *testing.T) {
	ctx := context.Background()

	t.Run("SweepsExpiredMonthForward", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		currentMonth := register.StartOfMonth(time.Now())
		expiredMonth := currentMonth.AddDate(0, -1, 0)
		reg := openBankRegister(t, expiredMonth, 100000)

		// First sweep finds the expired register, second finds only the
		// successor anchored at the current month.
		bankRegs.On("FindAllOpen", ctx).Return([]*register.CashRegister{reg}, nil).Once()
		bankRegs.On("FindOpenInMonth", ctx, expiredMonth).Return([]*register.CashRegister{reg}, nil).Once()
		bankRegs.On("Update", ctx, reg).Return(nil).Once()
		bankRegs.On("FindByPeriodStart", ctx, currentMonth).Return(nil, nil).Once()

		var successor *register.CashRegister
		bankRegs.On("Create", ctx, mock.AnythingOfType("*register.CashRegister")).Run(func(args mock.Arguments) {
			successor = args.Get(1).(*register.CashRegister)
		}).Return(nil).Once()
		bankRegs.On("FindAllOpen", ctx).Return([]*register.CashRegister{}, nil).Once()

		closed, err := svc.CloseExpiredMonths(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 1, closed)
		assert.NotNil(t, successor)
		assert.Equal(t, currentMonth, successor.PeriodStart)
		bankRegs.AssertExpectations(t)
	})

	t.Run("CurrentMonthLeftAlone", func(t *testing.T) {
		svc, bankRegs, _, _ := newBankServiceForTest()
		reg := openBankRegister(t, register.StartOfMonth(time.Now()), 100000)

		bankRegs.On("FindAllOpen", ctx).Return([]*register.CashRegister{reg}, nil).Once()

		closed, err := svc.CloseExpiredMonths(ctx)

		assert.NoError(t, err)
		assert.Equal(t, 0, closed)
		assert.Equal(t, register.StateOpen, reg.State)
	})
}

func TestBankVerifyBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Consistent", func(t *testing.T) {
		svc, bankRegs, _, pettyRegs := newBankServiceForTest()
		bank := openBankRegister(t, time.Now(), 100000)
		bank.CurrentBalance = 125000

		p1 := openPettyRegister(t)
		p1.CurrentBalance = 15000
		p2 := openPettyRegister(t)
		p2.CurrentBalance = 10000

		bankRegs.On("GetByID", ctx, bank.ID).Return(bank, nil).Once()
		pettyRegs.On("FindClosedActiveByBankID", ctx, bank.ID).Return([]*register.CashRegister{p1, p2}, nil).Once()

		report, err := svc.VerifyBalance(ctx, bank.ID)

		assert.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.False(t, report.Repaired)
		assert.Equal(t, int64(125000), report.Stored)
		assert.Equal(t, int64(125000), report.Computed)
	})

	t.Run("Inconsistent", func(t *testing.T) {
		svc, bankRegs, _, pettyRegs := newBankServiceForTest()
		bank := openBankRegister(t, time.Now(), 100000)
		bank.CurrentBalance = 999999

		bankRegs.On("GetByID", ctx, bank.ID).Return(bank, nil).Once()
		pettyRegs.On("FindClosedActiveByBankID", ctx, bank.ID).Return([]*register.CashRegister{}, nil).Once()

		report, err := svc.VerifyBalance(ctx, bank.ID)

		assert.NoError(t, err)
		assert.False(t, report.Consistent)
		assert.Equal(t, int64(100000), report.Computed)
		bankRegs.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBankRepairBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("RepairsWhenInconsistent", func(t *testing.T) {
		svc, bankRegs, _, pettyRegs := newBankServiceForTest()
		bank := openBankRegister(t, time.Now(), 100000)
		bank.CurrentBalance = 999999

		p := openPettyRegister(t)
		p.CurrentBalance = 5000

		bankRegs.On("GetByID", ctx, bank.ID).Return(bank, nil).Once()
		pettyRegs.On("FindClosedActiveByBankID", ctx, bank.ID).Return([]*register.CashRegister{p}, nil).Once()
		bankRegs.On("UpdateBalance", ctx, bank.ID, int64(105000)).Return(nil).Once()

		report, err := svc.RepairBalance(ctx, bank.ID)

		assert.NoError(t, err)
		assert.True(t, report.Repaired)
		assert.Equal(t, int64(105000), report.Computed)
		bankRegs.AssertExpectations(t)
	})

	t.Run("ConsistentSkipsWrite", func(t *testing.T) {
		svc, bankRegs, _, pettyRegs := newBankServiceForTest()
		bank := openBankRegister(t, time.Now(), 100000)

		bankRegs.On("GetByID", ctx, bank.ID).Return(bank, nil).Once()
		pettyRegs.On("FindClosedActiveByBankID", ctx, bank.ID).Return([]*register.CashRegister{}, nil).Once()

		report, err := svc.RepairBalance(ctx, bank.ID)

		assert.NoError(t, err)
		assert.True(t, report.Consistent)
		assert.False(t, report.Repaired)
		bankRegs.AssertNotCalled(t, "UpdateBalance", mock.Anything, mock.Anything, mock.Anything)
	})
}
