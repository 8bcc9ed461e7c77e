package vehicle

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// Service enforces the authorization policy around vehicle sale
// registrations.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns registrations visible to the principal.
func (s *Service) List(ctx context.Context, p authz.Principal, req ListRegistrationsRequest) ([]Registration, int, error) {
	if !authz.CanViewAllRecords(p.Role, authz.ModuleVehicle) {
		createdBy, err := strconv.ParseInt(p.UserID, 10, 64)
		if err != nil {
			return nil, 0, httpx.ErrForbidden
		}
		req.CreatedBy = &createdBy
	}
	return s.repo.List(ctx, req)
}

// Get fetches one registration, denying operators access to records they
// did not create.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*Registration, error) {
	reg, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanViewAllRecords(p.Role, authz.ModuleVehicle) {
		if strconv.FormatInt(reg.CreatedBy, 10) != p.UserID {
			return nil, httpx.ErrForbidden
		}
	}
	return reg, nil
}

// Create registers a vehicle sale.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateRegistrationRequest) (*Registration, error) {
	if !authz.CanCreateRecords(p.Role, authz.ModuleVehicle) {
		return nil, httpx.ErrForbidden
	}
	createdBy, err := strconv.ParseInt(p.UserID, 10, 64)
	if err != nil {
		return nil, httpx.ErrForbidden
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate registration code: %w", err)
	}

	reg := Registration{
		Code:             code,
		PlateNo:          req.PlateNo,
		VIN:              req.VIN,
		Make:             req.Make,
		Model:            req.Model,
		Year:             req.Year,
		Price:            req.Price,
		SellerName:       req.SellerName,
		SellerNationalID: req.SellerNationalID,
		BuyerName:        req.BuyerName,
		BuyerNationalID:  req.BuyerNationalID,
		ProvinceID:       req.ProvinceID,
		CompanyID:        req.CompanyID,
		SaleDate:         req.SaleDate,
		Notes:            req.Notes,
		CreatedBy:        createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, reg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create registration: %w", err)
	}
	reg.ID = id

	s.recordAudit(ctx, p, "create", id, map[string]any{"vin": reg.VIN})
	return &reg, nil
}

// Update applies partial updates after the record-level edit verdict.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateRegistrationRequest) (*Registration, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meta := authz.RecordMeta{
		CreatedBy:  strconv.FormatInt(existing.CreatedBy, 10),
		ProvinceID: existing.ProvinceID,
	}
	if !authz.CanEditRecord(p, authz.ModuleVehicle, meta) {
		return nil, httpx.ErrForbidden
	}

	updates := make(map[string]interface{})
	if req.PlateNo != nil {
		updates["plate_no"] = *req.PlateNo
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.SellerName != nil {
		updates["seller_name"] = *req.SellerName
	}
	if req.BuyerName != nil {
		updates["buyer_name"] = *req.BuyerName
	}
	if req.SaleDate != nil {
		updates["sale_date"] = *req.SaleDate
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update registration: %w", err)
	}

	s.recordAudit(ctx, p, "update", id, nil)
	return s.repo.Get(ctx, id)
}

// Delete removes a registration. Admin only.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if !authz.CanDeleteRecords(p.Role, authz.ModuleVehicle) {
		return httpx.ErrForbidden
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, p, "delete", id, nil)
	return nil
}

// recordAudit never fails the mutation, but a broken trail must be
// visible in the logs.
func (s *Service) recordAudit(ctx context.Context, p authz.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   action,
		Module:   authz.ModuleVehicle.String(),
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit record failed",
			slog.String("module", authz.ModuleVehicle.String()),
			slog.String("action", action),
			slog.Int64("entity_id", id),
			slog.Any("error", err),
		)
	}
}
