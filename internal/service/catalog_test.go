package service

import (
	"context"
	"testing"
	"time"

	"officina/internal/model"
	"officina/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceTypeService(t *testing.T) {
	db := setupTestDB(t)
	svc := NewServiceTypeService(repository.NewServiceTypeRepository(db))
	ctx := context.Background()

	created, err := svc.CreateServiceType(ctx, ServiceTypeRequest{Name: " Tagliando ", Category: "manutenzione", LaborPrice: "45.5"})
	require.NoError(t, err)
	assert.Equal(t, "Tagliando", created.Name)
	assert.Equal(t, "45.50", created.LaborPrice)
	assert.True(t, created.Active)

	_, err = svc.CreateServiceType(ctx, ServiceTypeRequest{Name: "Tagliando", Category: "manutenzione"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateServiceType(ctx, ServiceTypeRequest{Name: "Freni", Category: "freni", LaborPrice: "abc"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	updated, err := svc.UpdateServiceType(ctx, created.ID, ServiceTypeRequest{Name: "Tagliando completo", Category: "manutenzione", LaborPrice: "50"})
	require.NoError(t, err)
	assert.Equal(t, "Tagliando completo", updated.Name)
	assert.Equal(t, "50.00", updated.LaborPrice)

	list, total, err := svc.ListServiceTypes(ctx, "manutenzione", false, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)

	require.NoError(t, svc.DeleteServiceType(ctx, created.ID))
	_, err = svc.GetServiceType(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteServiceType(ctx, uuid.NewString()), ErrNotFound)
}

func TestTaxService_RulesAndAudit(t *testing.T) {
	db := setupTestDB(t)
	auditRepo := repository.NewAuditRepository(db)
	svc := NewTaxService(repository.NewTaxRuleRepository(db), repository.NewTransactionManager(db), auditRepo, decimal.NewFromInt(22))
	audit := NewAuditService(auditRepo)
	ctx := context.Background()

	rule, err := svc.CreateTaxRule(ctx, TaxRuleRequest{Name: "IVA ridotta", Rate: "10", EffectiveFrom: "2024-01-01", EffectiveTo: "2024-12-31"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "10.00", rule.Rate)
	require.NotNil(t, rule.EffectiveTo)
	assert.Equal(t, "2024-12-31", *rule.EffectiveTo)

	t.Run("overlap rejected", func(t *testing.T) {
		_, err := svc.CreateTaxRule(ctx, TaxRuleRequest{Name: "IVA", Rate: "22", EffectiveFrom: "2024-06-01"}, nil)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("bad range rejected", func(t *testing.T) {
		_, err := svc.CreateTaxRule(ctx, TaxRuleRequest{Name: "IVA", Rate: "22", EffectiveFrom: "2026-01-01", EffectiveTo: "2025-01-01"}, nil)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("active rate falls back to default", func(t *testing.T) {
		rate, err := svc.ActiveRate(ctx, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(10).Equal(rate))

		rate, err = svc.ActiveRate(ctx, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(22).Equal(rate))

		active, err := svc.GetActiveTaxRate(ctx, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Nil(t, active.RuleID)
		assert.Equal(t, "22.00", active.Rate)
	})

	t.Run("updating a rule may keep its own range", func(t *testing.T) {
		updated, err := svc.UpdateTaxRule(ctx, rule.ID, TaxRuleRequest{Name: "IVA ridotta", Rate: "5", EffectiveFrom: "2024-01-01", EffectiveTo: "2024-12-31"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "5.00", updated.Rate)
	})

	require.NoError(t, svc.DeleteTaxRule(ctx, rule.ID, nil))

	logs, total, err := audit.GetAuditLogs(ctx, repository.AuditFilter{EntityID: rule.ID}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, logs, 3)
	actions := []string{logs[0].Action, logs[1].Action, logs[2].Action}
	assert.ElementsMatch(t, []string{model.ActionCreateTaxRule, model.ActionUpdateTaxRule, model.ActionDeleteTaxRule}, actions)
	assert.Equal(t, "Sito pubblico", logs[0].Username)
	assert.NotEmpty(t, logs[0].Details)

	created, total, err := audit.GetAuditLogs(ctx, repository.AuditFilter{Action: model.ActionCreateTaxRule}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, rule.ID, created[0].EntityID)
}
