package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"officina/internal/model"
	"officina/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type ClientRequest struct {
	Name      string `json:"name" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"required"`
	Plate     string `json:"plate"`
	Model     string `json:"model"`
	VIN       string `json:"vin"`
	BirthDate string `json:"birth_date"` // YYYY-MM-DD, optional
}

type ClientResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Surname   string  `json:"surname"`
	FullName  string  `json:"full_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Plate     string  `json:"plate"`
	Model     string  `json:"model"`
	VIN       string  `json:"vin"`
	BirthDate *string `json:"birth_date"`
	CreatedAt string  `json:"created_at"`
}

// --- Interface ---

type ClientService interface {
	ListClients(ctx context.Context, search string, page, limit int) ([]ClientResponse, int64, error)
	GetClient(ctx context.Context, id string) (*ClientResponse, error)
	CreateClient(ctx context.Context, req ClientRequest, actor *uuid.UUID) (*ClientResponse, error)
	UpdateClient(ctx context.Context, id string, req ClientRequest, actor *uuid.UUID) (*ClientResponse, error)
	DeleteClient(ctx context.Context, id string, actor *uuid.UUID) error
}

type clientService struct {
	repo  repository.ClientRepository
	tx    repository.TransactionManager
	audit auditTrail
}

func NewClientService(repo repository.ClientRepository, tx repository.TransactionManager, auditRepo repository.AuditRepository) ClientService {
	return &clientService{repo: repo, tx: tx, audit: auditTrail{repo: auditRepo}}
}

// NormalizePlate upper-cases a plate and strips spaces and dashes
func NormalizePlate(plate string) string {
	r := strings.NewReplacer(" ", "", "-", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(plate)))
}

func applyClientRequest(c *model.Client, req ClientRequest) error {
	c.Name = strings.TrimSpace(req.Name)
	c.Surname = strings.TrimSpace(req.Surname)
	c.Email = strings.TrimSpace(req.Email)
	c.Phone = strings.TrimSpace(req.Phone)
	c.Plate = NormalizePlate(req.Plate)
	c.Model = strings.TrimSpace(req.Model)
	c.VIN = strings.ToUpper(strings.TrimSpace(req.VIN))
	c.BirthDate = nil
	if req.BirthDate != "" {
		d, err := parseDate(req.BirthDate, "birth_date")
		if err != nil {
			return err
		}
		c.BirthDate = &d
	}
	if c.Name == "" || c.Phone == "" {
		return invalidf("name and phone are required")
	}
	return nil
}

func toClientResponse(c model.Client) ClientResponse {
	resp := ClientResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Surname:   c.Surname,
		FullName:  c.FullName(),
		Email:     c.Email,
		Phone:     c.Phone,
		Plate:     c.Plate,
		Model:     c.Model,
		VIN:       c.VIN,
		CreatedAt: formatTime(c.CreatedAt),
	}
	if c.BirthDate != nil {
		s := c.BirthDate.Format("2006-01-02")
		resp.BirthDate = &s
	}
	return resp
}

func (s *clientService) ListClients(ctx context.Context, search string, page, limit int) ([]ClientResponse, int64, error) {
	clients, total, err := s.repo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch clients: %w", err)
	}
	res := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		res = append(res, toClientResponse(c))
	}
	return res, total, nil
}

func (s *clientService) GetClient(ctx context.Context, id string) (*ClientResponse, error) {
	clientID, err := parseID(id, "client")
	if err != nil {
		return nil, err
	}
	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		return nil, lookupErr("client", err)
	}
	resp := toClientResponse(*client)
	return &resp, nil
}

func (s *clientService) CreateClient(ctx context.Context, req ClientRequest, actor *uuid.UUID) (*ClientResponse, error) {
	var client model.Client
	if err := applyClientRequest(&client, req); err != nil {
		return nil, err
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, &client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionCreateClient, client.ID.String(), client.FullName(), req)
	})
	if err != nil {
		return nil, err
	}

	resp := toClientResponse(client)
	return &resp, nil
}

func (s *clientService) UpdateClient(ctx context.Context, id string, req ClientRequest, actor *uuid.UUID) (*ClientResponse, error) {
	clientID, err := parseID(id, "client")
	if err != nil {
		return nil, err
	}

	var client *model.Client
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, clientID)
		if err != nil {
			return lookupErr("client", err)
		}
		client = found
		if err := applyClientRequest(client, req); err != nil {
			return err
		}
		client.UpdatedAt = time.Now()
		if err := s.repo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionUpdateClient, client.ID.String(), client.FullName(), req)
	})
	if err != nil {
		return nil, err
	}

	resp := toClientResponse(*client)
	return &resp, nil
}

// DeleteClient soft-deletes the client; its quotes and appointments are kept
func (s *clientService) DeleteClient(ctx context.Context, id string, actor *uuid.UUID) error {
	clientID, err := parseID(id, "client")
	if err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		client, err := s.repo.FindByID(txCtx, clientID)
		if err != nil {
			return lookupErr("client", err)
		}
		if err := s.repo.Delete(txCtx, clientID); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return s.audit.record(txCtx, actor, model.ActionDeleteClient, client.ID.String(), client.FullName(), map[string]string{"deleted_id": id})
	})
}
