package securities

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// Service enforces the authorization policy around security form batches.
// Issuance follows the registrar scoping rules of the company module:
// registrars only issue and see batches inside their own province.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns batches visible to the principal.
func (s *Service) List(ctx context.Context, p authz.Principal, req ListBatchesRequest) ([]Batch, int, error) {
	if !authz.CanViewAllRecords(p.Role, authz.ModuleSecurities) {
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

// Get fetches one batch with the same scoping as List.
func (s *Service) Get(ctx context.Context, p authz.Principal, id int64) (*Batch, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Role == authz.RoleCompanyRegistrar {
		if b.ProvinceID == nil || p.ProvinceID == nil || *b.ProvinceID != *p.ProvinceID {
			return nil, httpx.ErrForbidden
		}
	}
	return b, nil
}

// Create issues a new batch of security forms to a company.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateBatchRequest) (*Batch, error) {
	if !authz.CanCreateRecords(p.Role, authz.ModuleSecurities) {
		return nil, httpx.ErrForbidden
	}
	if req.SerialFrom > req.SerialTo {
		return nil, ErrInvalidRange
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

	b := Batch{
		CompanyID:  req.CompanyID,
		SerialFrom: req.SerialFrom,
		SerialTo:   req.SerialTo,
		IssuedBy:   req.IssuedBy,
		IssueDate:  req.IssueDate,
		ProvinceID: req.ProvinceID,
		Notes:      req.Notes,
		CreatedBy:  createdBy,
	}

	// Overlap check and insert run in one repeatable-read transaction so
	// concurrent issuance cannot produce colliding serial ranges.
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		overlap, err := repo.OverlapExists(ctx, b.CompanyID, b.SerialFrom, b.SerialTo)
		if err != nil {
			return err
		}
		if overlap {
			return ErrSerialOverlap
		}
		id, err = repo.Create(ctx, b)
		return err
	})
	if err != nil {
		if err == ErrSerialOverlap {
			return nil, err
		}
		return nil, fmt.Errorf("issue batch: %w", err)
	}
	b.ID = id

	s.recordAudit(ctx, p, "create", id, map[string]any{
		"company_id":  b.CompanyID,
		"serial_from": b.SerialFrom,
		"serial_to":   b.SerialTo,
	})
	return &b, nil
}

// Update applies partial updates after the record-level edit verdict.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateBatchRequest) (*Batch, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meta := authz.RecordMeta{
		CreatedBy:  strconv.FormatInt(existing.CreatedBy, 10),
		ProvinceID: existing.ProvinceID,
	}
	if !authz.CanEditRecord(p, authz.ModuleSecurities, meta) {
		return nil, httpx.ErrForbidden
	}

	updates := make(map[string]interface{})
	if req.IssuedBy != nil {
		updates["issued_by"] = *req.IssuedBy
	}
	if req.IssueDate != nil {
		updates["issue_date"] = *req.IssueDate
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
		return nil, fmt.Errorf("update batch: %w", err)
	}

	s.recordAudit(ctx, p, "update", id, nil)
	return s.repo.Get(ctx, id)
}

// Delete removes a batch. Admin only.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id int64) error {
	if !authz.CanDeleteRecords(p.Role, authz.ModuleSecurities) {
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
		Module:   authz.ModuleSecurities.String(),
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit record failed",
			slog.String("module", authz.ModuleSecurities.String()),
			slog.String("action", action),
			slog.Int64("entity_id", id),
			slog.Any("error", err),
		)
	}
}
