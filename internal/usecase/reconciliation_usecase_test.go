package usecase_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/pocketledger/internal/domain"
	"github.com/iho/pocketledger/internal/infrastructure/metrics"
	"github.com/iho/pocketledger/internal/usecase"
	"github.com/iho/pocketledger/internal/usecase/mocks"
)

func TestReconcileAccount(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, usecase.Options{})
	l.addAccount("X", "ARS")
	l.addAccount("Y", "ARS")
	l.fund(t, "X", 150)
	l.transfer(t, "X", "Y", 40)

	uc := usecase.NewReconciliationUseCase(l.store.Accounts(), l.store.Movements(), usecase.Options{})

	result, err := uc.ReconcileAccount(context.Background(), "X", testUserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.RecordedBalance.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("expected balance 110, got %s", result.RecordedBalance)
	}

	if !result.IsReconciled {
		t.Fatalf("expected account to be reconciled, difference %s", result.Difference)
	}

	if result.LastChecked.IsZero() {
		t.Fatal("expected LastChecked timestamp to be set")
	}
}

func TestReconcileAccount_PropagatesError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	movementRepo := mocks.NewMockMovementRepository(ctrl)

	accountRepo.EXPECT().GetByID(gomock.Any(), "missing", testUserID).Return(nil, domain.ErrAccountNotFound)

	uc := usecase.NewReconciliationUseCase(accountRepo, movementRepo, usecase.Options{})

	_, err := uc.ReconcileAccount(context.Background(), "missing", testUserID)
	if domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReconcileAllAccounts_PropagatesSumError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	accountRepo := mocks.NewMockAccountRepository(ctrl)
	movementRepo := mocks.NewMockMovementRepository(ctrl)

	accountRepo.EXPECT().List(gomock.Any(), usecase.MaxReconcileAccounts, 0).Return([]*domain.Account{{ID: "acc-1"}}, nil)
	movementRepo.EXPECT().SumByAccount(gomock.Any(), "acc-1").Return(decimal.Zero, errBoom)

	uc := usecase.NewReconciliationUseCase(accountRepo, movementRepo, usecase.Options{})

	if _, err := uc.ReconcileAllAccounts(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateReconciliationReport(t *testing.T) {
	t.Parallel()

	l := newTestLedger(t, usecase.Options{})
	l.addAccount("X", "ARS")
	l.addAccount("Y", "ARS")
	l.fund(t, "X", 100)
	l.fund(t, "Y", 20)

	drifted := l.store.Account("Y")
	drifted.Balance = decimal.NewFromInt(25)
	l.store.AddAccount(drifted)

	m := metrics.New(prometheus.NewRegistry())
	uc := usecase.NewReconciliationUseCase(l.store.Accounts(), l.store.Movements(), usecase.Options{Metrics: m})

	report, err := uc.GenerateReconciliationReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.TotalAccounts != 2 {
		t.Fatalf("expected total accounts 2, got %d", report.TotalAccounts)
	}

	if report.ReconciledAccounts != 1 {
		t.Fatalf("expected 1 reconciled account, got %d", report.ReconciledAccounts)
	}

	if len(report.Discrepancies) != 1 || report.Discrepancies[0].AccountID != "Y" {
		t.Fatalf("expected Y to drift, got %+v", report.Discrepancies)
	}

	if !report.Discrepancies[0].Difference.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected difference 5, got %s", report.Discrepancies[0].Difference)
	}

	if got := testutil.ToFloat64(m.ReconcileDiscrepancies); got != 1 {
		t.Fatalf("expected gauge 1, got %v", got)
	}

	if report.CheckedAt.IsZero() {
		t.Fatal("expected CheckedAt timestamp")
	}
}
