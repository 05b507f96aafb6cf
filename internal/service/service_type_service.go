package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"officina/internal/model"
	"officina/internal/repository"

	"gorm.io/gorm"
)

type ServiceTypeRequest struct {
	Name       string `json:"name" binding:"required"`
	Category   string `json:"category" binding:"required"`
	LaborPrice string `json:"labor_price"` // hourly rate, decimal string
	Active     *bool  `json:"active"`
}

type ServiceTypeResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	LaborPrice string `json:"labor_price"`
	Active     bool   `json:"active"`
}

type ServiceTypeService interface {
	ListServiceTypes(ctx context.Context, category string, activeOnly bool, page, limit int) ([]ServiceTypeResponse, int64, error)
	GetServiceType(ctx context.Context, id string) (*ServiceTypeResponse, error)
	CreateServiceType(ctx context.Context, req ServiceTypeRequest) (*ServiceTypeResponse, error)
	UpdateServiceType(ctx context.Context, id string, req ServiceTypeRequest) (*ServiceTypeResponse, error)
	DeleteServiceType(ctx context.Context, id string) error
}

type serviceTypeService struct {
	repo repository.ServiceTypeRepository
}

func NewServiceTypeService(repo repository.ServiceTypeRepository) ServiceTypeService {
	return &serviceTypeService{repo: repo}
}

func toServiceTypeResponse(st model.ServiceType) ServiceTypeResponse {
	return ServiceTypeResponse{
		ID:         st.ID.String(),
		Name:       st.Name,
		Category:   st.Category,
		LaborPrice: st.LaborPrice.StringFixed(2),
		Active:     st.Active,
	}
}

func applyServiceTypeRequest(st *model.ServiceType, req ServiceTypeRequest) error {
	price, err := parseMoney(req.LaborPrice, "labor_price")
	if err != nil {
		return err
	}
	st.Name = strings.TrimSpace(req.Name)
	st.Category = strings.TrimSpace(req.Category)
	st.LaborPrice = price
	if req.Active != nil {
		st.Active = *req.Active
	}
	if st.Name == "" || st.Category == "" {
		return invalidf("name and category are required")
	}
	return nil
}

func (s *serviceTypeService) ListServiceTypes(ctx context.Context, category string, activeOnly bool, page, limit int) ([]ServiceTypeResponse, int64, error) {
	types, total, err := s.repo.List(ctx, category, activeOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch service types: %w", err)
	}
	res := make([]ServiceTypeResponse, 0, len(types))
	for _, st := range types {
		res = append(res, toServiceTypeResponse(st))
	}
	return res, total, nil
}

func (s *serviceTypeService) GetServiceType(ctx context.Context, id string) (*ServiceTypeResponse, error) {
	stID, err := parseID(id, "service type")
	if err != nil {
		return nil, err
	}
	st, err := s.repo.FindByID(ctx, stID)
	if err != nil {
		return nil, lookupErr("service type", err)
	}
	resp := toServiceTypeResponse(*st)
	return &resp, nil
}

func (s *serviceTypeService) CreateServiceType(ctx context.Context, req ServiceTypeRequest) (*ServiceTypeResponse, error) {
	st := model.ServiceType{Active: true}
	if err := applyServiceTypeRequest(&st, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &st); err != nil {
		if isUniqueViolation(err) {
			return nil, conflictf("service type %q already exists", st.Name)
		}
		return nil, fmt.Errorf("failed to create service type: %w", err)
	}
	resp := toServiceTypeResponse(st)
	return &resp, nil
}

func (s *serviceTypeService) UpdateServiceType(ctx context.Context, id string, req ServiceTypeRequest) (*ServiceTypeResponse, error) {
	stID, err := parseID(id, "service type")
	if err != nil {
		return nil, err
	}
	st, err := s.repo.FindByID(ctx, stID)
	if err != nil {
		return nil, lookupErr("service type", err)
	}
	if err := applyServiceTypeRequest(st, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, st); err != nil {
		if isUniqueViolation(err) {
			return nil, conflictf("service type %q already exists", st.Name)
		}
		return nil, fmt.Errorf("failed to update service type: %w", err)
	}
	resp := toServiceTypeResponse(*st)
	return &resp, nil
}

func (s *serviceTypeService) DeleteServiceType(ctx context.Context, id string) error {
	stID, err := parseID(id, "service type")
	if err != nil {
		return err
	}
	if _, err := s.repo.FindByID(ctx, stID); err != nil {
		return lookupErr("service type", err)
	}
	if err := s.repo.Delete(ctx, stID); err != nil {
		return fmt.Errorf("failed to delete service type: %w", err)
	}
	return nil
}

// isUniqueViolation recognises unique constraint errors from postgres and sqlite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
