package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"officina/internal/model"
	"officina/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type TaxRuleRequest struct {
	Name          string `json:"name" binding:"required"`
	Rate          string `json:"rate" binding:"required"`           // Percent as decimal string, e.g. "22"
	EffectiveFrom string `json:"effective_from" binding:"required"` // YYYY-MM-DD
	EffectiveTo   string `json:"effective_to"`                      // YYYY-MM-DD, nullable
	Description   string `json:"description"`
}

type TaxRuleResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Rate          string  `json:"rate"`
	EffectiveFrom string  `json:"effective_from"`
	EffectiveTo   *string `json:"effective_to"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

type ActiveTaxRateResponse struct {
	Rate   string  `json:"rate"`
	RuleID *string `json:"rule_id"` // nil when the configured default applies
	Name   string  `json:"name"`
}

// --- Interface ---

type TaxService interface {
	GetTaxRules(ctx context.Context, page, limit int) ([]TaxRuleResponse, int64, error)
	CreateTaxRule(ctx context.Context, req TaxRuleRequest, actor *uuid.UUID) (TaxRuleResponse, error)
	UpdateTaxRule(ctx context.Context, id string, req TaxRuleRequest, actor *uuid.UUID) (TaxRuleResponse, error)
	DeleteTaxRule(ctx context.Context, id string, actor *uuid.UUID) error
	GetActiveTaxRate(ctx context.Context, targetDate time.Time) (ActiveTaxRateResponse, error)
	ActiveRate(ctx context.Context, targetDate time.Time) (decimal.Decimal, error)
}

type taxService struct {
	repo        repository.TaxRuleRepository
	tx          repository.TransactionManager
	audit       auditTrail
	defaultRate decimal.Decimal
}

// NewTaxService builds the tax rule service; defaultRate applies on dates no rule covers
func NewTaxService(repo repository.TaxRuleRepository, tx repository.TransactionManager, auditRepo repository.AuditRepository, defaultRate decimal.Decimal) TaxService {
	return &taxService{repo: repo, tx: tx, audit: auditTrail{repo: auditRepo}, defaultRate: defaultRate}
}

// --- Implementation ---

func (s *taxService) GetTaxRules(ctx context.Context, page, limit int) ([]TaxRuleResponse, int64, error) {
	rules, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch tax rules: %w", err)
	}

	res := make([]TaxRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toTaxRuleResponse(r))
	}
	return res, total, nil
}

func (s *taxService) CreateTaxRule(ctx context.Context, req TaxRuleRequest, actor *uuid.UUID) (TaxRuleResponse, error) {
	rate, effectiveFrom, effectiveTo, err := parseTaxRuleFields(req.Rate, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rule := model.TaxRule{
		Name:          req.Name,
		Rate:          rate,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		Description:   req.Description,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkOverlap(txCtx, effectiveFrom, effectiveTo, nil); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, &rule); err != nil {
			return fmt.Errorf("failed to create tax rule: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionCreateTaxRule, rule.ID.String(), rule.Name+" "+rate.StringFixed(2)+"%", req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	return toTaxRuleResponse(rule), nil
}

func (s *taxService) UpdateTaxRule(ctx context.Context, id string, req TaxRuleRequest, actor *uuid.UUID) (TaxRuleResponse, error) {
	ruleID, err := parseID(id, "tax rule")
	if err != nil {
		return TaxRuleResponse{}, err
	}

	rate, effectiveFrom, effectiveTo, err := parseTaxRuleFields(req.Rate, req.EffectiveFrom, req.EffectiveTo)
	if err != nil {
		return TaxRuleResponse{}, err
	}

	var rule *model.TaxRule
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, ruleID)
		if err != nil {
			return lookupErr("tax rule", err)
		}
		// Validate overlap (exclude self)
		if err := s.checkOverlap(txCtx, effectiveFrom, effectiveTo, &ruleID); err != nil {
			return err
		}

		found.Name = req.Name
		found.Rate = rate
		found.EffectiveFrom = effectiveFrom
		found.EffectiveTo = effectiveTo
		found.Description = req.Description
		if err := s.repo.Update(txCtx, found); err != nil {
			return fmt.Errorf("failed to update tax rule: %w", err)
		}
		rule = found
		return s.audit.record(txCtx, actor, model.ActionUpdateTaxRule, found.ID.String(), found.Name+" "+rate.StringFixed(2)+"%", req)
	})
	if err != nil {
		return TaxRuleResponse{}, err
	}

	return toTaxRuleResponse(*rule), nil
}

func (s *taxService) DeleteTaxRule(ctx context.Context, id string, actor *uuid.UUID) error {
	ruleID, err := parseID(id, "tax rule")
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		rule, err := s.repo.FindByID(txCtx, ruleID)
		if err != nil {
			return lookupErr("tax rule", err)
		}
		if err := s.repo.Delete(txCtx, ruleID); err != nil {
			return fmt.Errorf("failed to delete tax rule: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionDeleteTaxRule, rule.ID.String(), rule.Name+" "+rule.Rate.StringFixed(2)+"%", map[string]string{"deleted_id": id})
	})
}

func (s *taxService) GetActiveTaxRate(ctx context.Context, targetDate time.Time) (ActiveTaxRateResponse, error) {
	rule, err := s.repo.FindActive(ctx, targetDate)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ActiveTaxRateResponse{Rate: s.defaultRate.StringFixed(2), Name: "default"}, nil
	}
	if err != nil {
		return ActiveTaxRateResponse{}, fmt.Errorf("failed to query active tax rate: %w", err)
	}

	ruleID := rule.ID.String()
	return ActiveTaxRateResponse{Rate: rule.Rate.StringFixed(2), RuleID: &ruleID, Name: rule.Name}, nil
}

// ActiveRate returns the percentage in force on targetDate, falling back to the configured default
func (s *taxService) ActiveRate(ctx context.Context, targetDate time.Time) (decimal.Decimal, error) {
	rule, err := s.repo.FindActive(ctx, targetDate)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.defaultRate, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query tax rule: %w", err)
	}
	return rule.Rate, nil
}

// --- Helpers ---

func parseTaxRuleFields(rateStr, fromStr, toStr string) (decimal.Decimal, time.Time, *time.Time, error) {
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, time.Time{}, nil, invalidf("invalid rate value %q", rateStr)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, time.Time{}, nil, invalidf("rate must be between 0 and 100")
	}

	effectiveFrom, err := parseDate(fromStr, "effective_from")
	if err != nil {
		return decimal.Zero, time.Time{}, nil, err
	}

	var effectiveTo *time.Time
	if toStr != "" {
		t, err := parseDate(toStr, "effective_to")
		if err != nil {
			return decimal.Zero, time.Time{}, nil, err
		}
		if t.Before(effectiveFrom) {
			return decimal.Zero, time.Time{}, nil, invalidf("effective_to is before effective_from")
		}
		effectiveTo = &t
	}

	return rate, effectiveFrom, effectiveTo, nil
}

func (s *taxService) checkOverlap(ctx context.Context, from time.Time, to *time.Time, excludeID *uuid.UUID) error {
	count, err := s.repo.CountOverlapping(ctx, from, to, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check overlap: %w", err)
	}
	if count > 0 {
		return conflictf("a tax rule already exists with overlapping effective dates")
	}
	return nil
}

func toTaxRuleResponse(r model.TaxRule) TaxRuleResponse {
	resp := TaxRuleResponse{
		ID:            r.ID.String(),
		Name:          r.Name,
		Rate:          r.Rate.StringFixed(2),
		EffectiveFrom: r.EffectiveFrom.Format("2006-01-02"),
		Description:   r.Description,
		CreatedAt:     formatTime(r.CreatedAt),
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	return resp
}
