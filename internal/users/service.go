package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/platform/httpx"
	"github.com/registra-gov/registra/internal/shared"
)

// ErrInvalidAssignment indicates a role/province/company combination that
// cannot produce a working credential.
var ErrInvalidAssignment = errors.New("users: invalid role assignment")

// Service wraps account management rules. Only roles holding users
// capabilities pass the guards; assignment rules mirror what claim
// resolution requires at login so an account can never be created in a
// state that fails authentication later.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns user accounts.
func (s *Service) List(ctx context.Context, req ListUsersRequest) ([]User, int, error) {
	return s.repo.List(ctx, req)
}

// Get fetches one account.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create adds an account with a hashed password.
func (s *Service) Create(ctx context.Context, p authz.Principal, req CreateUserRequest) (*User, error) {
	if !authz.CanCreateRecords(p.Role, authz.ModuleUsers) {
		return nil, httpx.ErrForbidden
	}
	if err := validateAssignment(req.Role, req.ProvinceID, req.CompanyID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		ProvinceID: req.ProvinceID,
		CompanyID:  req.CompanyID,
		IsActive:   true,
	}
	id, err := s.repo.Create(ctx, u, string(hash))
	if err != nil {
		return nil, err
	}
	u.ID = id

	s.recordAudit(ctx, p, "create", id, map[string]any{"role": u.Role})
	return &u, nil
}

// Update applies partial updates. Role and province changes only take
// effect for the target user at their next login.
func (s *Service) Update(ctx context.Context, p authz.Principal, id int64, req UpdateUserRequest) (*User, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	meta := authz.RecordMeta{CreatedBy: strconv.FormatInt(id, 10), ProvinceID: existing.ProvinceID}
	if !authz.CanEditRecord(p, authz.ModuleUsers, meta) {
		return nil, httpx.ErrForbidden
	}

	role := existing.Role
	if req.Role != nil {
		role = *req.Role
	}
	provinceID := existing.ProvinceID
	if req.ProvinceID != nil {
		provinceID = req.ProvinceID
	}
	companyID := existing.CompanyID
	if req.CompanyID != nil {
		companyID = req.CompanyID
	}
	if err := validateAssignment(role, provinceID, companyID); err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.ProvinceID != nil {
		updates["province_id"] = *req.ProvinceID
	}
	if req.CompanyID != nil {
		updates["company_id"] = *req.CompanyID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		updates["password_hash"] = string(hash)
	}
	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, p, "update", id, nil)
	return s.repo.Get(ctx, id)
}

// validateAssignment rejects combinations that would strand the account:
// an unknown role, a registrar without a province, or an operator without
// a company to resolve the license type from.
func validateAssignment(roleName string, provinceID, companyID *int64) error {
	role := authz.ParseRole(roleName)
	if !role.Valid() {
		return ErrInvalidAssignment
	}
	if role.RequiresProvince() && provinceID == nil {
		return ErrInvalidAssignment
	}
	if (role == authz.RolePropertyOperator || role == authz.RoleVehicleOperator) && companyID == nil {
		return ErrInvalidAssignment
	}
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
		Module:   authz.ModuleUsers.String(),
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		logger := s.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("audit record failed",
			slog.String("module", authz.ModuleUsers.String()),
			slog.String("action", action),
			slog.Int64("entity_id", id),
			slog.Any("error", err),
		)
	}
}
