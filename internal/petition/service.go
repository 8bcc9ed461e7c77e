package petition

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// Service enforces the authorization policy around petition-writer
// licenses. The module gate is the company module: registrars issue and
// manage licenses within their province, view-only roles read.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns licenses visible to the principal.
func (s *Service) List(ctx context.Context, p authz.Principal, req ListLicensesRequest) ([]License, int, error) {
	if !authz.CanViewAllRecords(p.Role, authz.ModuleCompany) {
		createdBy, err := strconv.ParseInt(p.UserID, 10, 64)
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

// Get fetches one license with the same scoping as List.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*License, error) {
	lic, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == authz.RoleCompanyRegistrar {
		if lic.ProvinceID == nil || p.ProvinceID == nil || *lic.ProvinceID != *p.ProvinceID {
			return nil, httpx.ErrForbidden
		}
	}
	return lic, nil
}

// Create issues a petition-writer license.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateLicenseRequest) (*License, error) {
	if !authz.CanCreateRecords(p.Role, authz.ModuleCompany) {
		return nil, httpx.ErrForbidden
	}
	if p.Role == authz.RoleCompanyRegistrar {
		if req.ProvinceID == nil || p.ProvinceID == nil || *req.ProvinceID != *p.ProvinceID {
			return nil, httpx.ErrForbidden
		}
	}
	createdBy, err := strconv.ParseInt(p.UserID, 10, 64)
	if err != nil {
		return nil, httpx.ErrForbidden
	}

	lic := License{
		LicenseNo:     req.LicenseNo,
		HolderName:    req.HolderName,
		NationalID:    req.NationalID,
		ProvinceID:    req.ProvinceID,
		IssueDate:     req.IssueDate,
		LicenseExpiry: req.LicenseExpiry,
		OfficeAddress: req.OfficeAddress,
		Phone:         req.Phone,
		IsActive:      true,
		CreatedBy:     createdBy,
	}

	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		id, err = repo.Create(ctx, lic)
		return err
	})
	if err != nil {
		if err == ErrDuplicateLicense {
			return nil, err
		}
		return nil, fmt.Errorf("create license: %w", err)
	}
	lic.ID = id

	s.recordAudit(ctx, p, "create", id, map[string]any{"license_no": lic.LicenseNo})
	return &lic, nil
}

// Update applies partial updates after the record-level edit verdict.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateLicenseRequest) (*License, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meta := authz.RecordMeta{
		CreatedBy:  strconv.FormatInt(existing.CreatedBy, 10),
		ProvinceID: existing.ProvinceID,
	}
	if !authz.CanEditRecord(p, authz.ModuleCompany, meta) {
		return nil, httpx.ErrForbidden
	}

	updates := make(map[string]interface{})
	if req.HolderName != nil {
		updates["holder_name"] = *req.HolderName
	}
	if req.LicenseExpiry != nil {
		updates["license_expiry"] = *req.LicenseExpiry
	}
	if req.OfficeAddress != nil {
		updates["office_address"] = *req.OfficeAddress
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
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
		return nil, fmt.Errorf("update license: %w", err)
	}

	s.recordAudit(ctx, p, "update", id, nil)
	return s.repo.Get(ctx, id)
}

// Delete removes a license. Admin only.
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

// recordAudit never fails the mutation, but a broken trail must be
// visible in the logs.
func (s *Service) recordAudit(ctx context.Context, p authz.Principal, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  p.UserID,
		Action:   action,
		Module:   "petition",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit record failed",
			slog.String("module", "petition"),
			slog.String("action", action),
			slog.Int64("entity_id", id),
			slog.Any("error", err),
		)
	}
}
