package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/registra-gov/registra/internal/authz"
	"github.com/registra-gov/registra/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// ResolveClaims builds the claim set baked into the session. A registrar
// account without a province assignment cannot be issued a credential at
// all. Operator accounts resolve the license type from their company; a
// missing company association leaves the license gate closed.
func (s *Service) ResolveClaims(ctx context.Context, user *User) (Claims, error) {
	role := authz.ParseRole(user.Role)
	if role.RequiresProvince() && user.ProvinceID == nil {
		return Claims{}, authz.ErrProvinceClaimMissing
	}

	claims := Claims{Role: user.Role, ProvinceID: user.ProvinceID}
	if role == authz.RolePropertyOperator || role == authz.RoleVehicleOperator {
		if user.CompanyID == nil {
			return claims, nil
		}
		licenseType, err := s.repo.CompanyLicenseType(ctx, *user.CompanyID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return claims, nil
			}
			return Claims{}, err
		}
		claims.LicenseType = licenseType
	}
	return claims, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}
