package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/pocketledger/internal/infrastructure/auth"
	"github.com/iho/pocketledger/internal/infrastructure/config"
	"github.com/iho/pocketledger/internal/usecase"
)

type fakeMigrator struct {
	up, down int
}

func (m *fakeMigrator) Up() error   { m.up++; return nil }
func (m *fakeMigrator) Down() error { m.down++; return nil }

type fakeReconciler struct {
	result *usecase.ReconciliationResult
	report *usecase.ReconciliationReport
}

func (f *fakeReconciler) ReconcileAccount(ctx context.Context, accountID, userID string) (*usecase.ReconciliationResult, error) {
	return f.result, nil
}

func (f *fakeReconciler) GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error) {
	return f.report, nil
}

func testApp(cfg *config.Config, m migrator, r reconciler) *app {
	return &app{
		loadConfig: func(...string) (*config.Config, error) { return cfg, nil },
		newMigrator: func(*config.Config, zerolog.Logger) migrator {
			return m
		},
		newReconciler: func(context.Context, *config.Config, zerolog.Logger) (reconciler, func(), error) {
			return r, func() {}, nil
		},
	}
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()

	cmd := a.rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateCommands(t *testing.T) {
	m := &fakeMigrator{}
	a := testApp(&config.Config{}, m, nil)

	_, err := execute(t, a, "migrate", "up")
	require.NoError(t, err)
	_, err = execute(t, a, "migrate", "down")
	require.NoError(t, err)

	assert.Equal(t, 1, m.up)
	assert.Equal(t, 1, m.down)
}

func TestReconcileReport(t *testing.T) {
	clean := &fakeReconciler{report: &usecase.ReconciliationReport{TotalAccounts: 2, ReconciledAccounts: 2}}
	out, err := execute(t, testApp(&config.Config{}, nil, clean), "reconcile")
	require.NoError(t, err)
	assert.Contains(t, out, `"TotalAccounts": 2`)

	drifted := &fakeReconciler{report: &usecase.ReconciliationReport{
		TotalAccounts: 1,
		Discrepancies: []*usecase.ReconciliationResult{{AccountID: "acc-1", Difference: decimal.NewFromInt(5)}},
	}}
	_, err = execute(t, testApp(&config.Config{}, nil, drifted), "reconcile")
	assert.True(t, errors.Is(err, errDiscrepancies))
}

func TestReconcileSingleAccount(t *testing.T) {
	rec := &fakeReconciler{result: &usecase.ReconciliationResult{AccountID: "acc-1", IsReconciled: true}}

	_, err := execute(t, testApp(&config.Config{}, nil, rec), "reconcile", "--account", "acc-1")
	require.Error(t, err)

	out, err := execute(t, testApp(&config.Config{}, nil, rec), "reconcile", "--account", "acc-1", "--user", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, `"AccountID": "acc-1"`)
}

func TestTokenCommand(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret", JWTExpiration: time.Hour}

	out, err := execute(t, testApp(cfg, nil, nil), "token", "--user", "user-7")
	require.NoError(t, err)

	claims, err := auth.NewJWTManager("secret", time.Hour).Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-7", claims.UserID)
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	_, err := execute(t, testApp(&config.Config{}, nil, nil), "token", "--user", "user-7")
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)
}
