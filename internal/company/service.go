package company

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// Service enforces the authorization policy and wraps company business
// rules. Record-level verdicts are taken before any data is written;
// listings are filtered according to the view-all verdict.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns companies visible to the principal. Registrars are scoped
// to their province; the module guard upstream already rejected roles
// without company access.
func (s *Service) List(ctx context.Context, p authz.Principal, req ListCompaniesRequest) ([]Company, int, error) {
	if !authz.CanViewAllRecords(p.Role, authz.ModuleCompany) {
		createdBy, err := actorID(p)
		if err != nil {
			return nil, 0, httpx.ErrForbidden
		}
		req.CreatedBy = &createdBy
	}
	if p.Role == authz.RoleCompanyRegistrar {
		req.ProvinceID = p.ProvinceID
	}
	return s.repo.List(ctx, req)
}

// Get fetches one company, applying the same scoping as List.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*Company, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canSee(p, c) {
		return nil, httpx.ErrForbidden
	}
	return c, nil
}

// Create registers a new company.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateCompanyRequest) (*Company, error) {
	if !authz.CanCreateRecords(p.Role, authz.ModuleCompany) {
		return nil, httpx.ErrForbidden
	}
	if p.Role == authz.RoleCompanyRegistrar {
		// Registrars may only register companies inside their own province.
		if req.ProvinceID == nil || p.ProvinceID == nil || *req.ProvinceID != *p.ProvinceID {
			return nil, httpx.ErrForbidden
		}
	}
	createdBy, err := actorID(p)
	if err != nil {
		return nil, httpx.ErrForbidden
	}

	existing, err := s.repo.GetByLicenseNo(ctx, req.LicenseNo)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing company: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateLicense
	}

	code, err := s.repo.GenerateCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate company code: %w", err)
	}

	c := Company{
		Code:          code,
		Name:          req.Name,
		LicenseNo:     req.LicenseNo,
		LicenseType:   req.LicenseType,
		ProvinceID:    req.ProvinceID,
		LicenseExpiry: req.LicenseExpiry,
		OwnerName:     req.OwnerName,
		Phone:         req.Phone,
		Address:       req.Address,
		IsActive:      true,
		CreatedBy:     createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, c)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	c.ID = id

	s.recordAudit(ctx, p, "create", id, map[string]any{"license_no": c.LicenseNo})
	return &c, nil
}

// Update applies partial updates to a company after the record-level edit
// verdict.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateCompanyRequest) (*Company, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanEditRecord(p, authz.ModuleCompany, recordMeta(existing)) {
		return nil, httpx.ErrForbidden
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.LicenseType != nil {
		updates["license_type"] = *req.LicenseType
	}
	if req.LicenseExpiry != nil {
		updates["license_expiry"] = *req.LicenseExpiry
	}
	if req.OwnerName != nil {
		updates["owner_name"] = *req.OwnerName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}

	s.recordAudit(ctx, p, "update", id, nil)
	return s.repo.Get(ctx, id)
}

// Delete removes a company. Admin only, per the delete policy.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if !authz.CanDeleteRecords(p.Role, authz.ModuleCompany) {
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

func (s *Service) canSee(p authz.Principal, c *Company) bool {
	if authz.CanViewAllRecords(p.Role, authz.ModuleCompany) {
		if p.Role == authz.RoleCompanyRegistrar {
			return c.ProvinceID != nil && p.ProvinceID != nil && *c.ProvinceID == *p.ProvinceID
		}
		return true
	}
	createdBy, err := actorID(p)
	if err != nil {
		return false
	}
	return c.CreatedBy == createdBy
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
		Module:   authz.ModuleCompany.String(),
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit record failed",
			slog.String("module", authz.ModuleCompany.String()),
			slog.String("action", action),
			slog.Int64("entity_id", id),
			slog.Any("error", err),
		)
	}
}

func recordMeta(c *Company) authz.RecordMeta {
	return authz.RecordMeta{
		CreatedBy:  strconv.FormatInt(c.CreatedBy, 10),
		ProvinceID: c.ProvinceID,
	}
}

func actorID(p authz.Principal) (int64, error) {
	return strconv.ParseInt(p.UserID, 10, 64)
}
