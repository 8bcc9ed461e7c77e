// Package dashboard aggregates per-module record counts for the landing
// view. Counts are computed concurrently and only for the modules the
// principal can reach; operators see counts of their own records.
package dashboard

import (
	"context"
	"strconv"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/registra-gov/registra/internal/authz"
)

// Summary holds the dashboard payload.
type Summary struct {
	Counts map[string]int64 `json:"counts"`
}

// Repository runs the count queries.
type Repository interface {
	CountCompanies(ctx context.Context, provinceID, createdBy *int64) (int64, error)
	CountProperties(ctx context.Context, createdBy *int64) (int64, error)
	CountVehicles(ctx context.Context, createdBy *int64) (int64, error)
	CountSecurityBatches(ctx context.Context, provinceID *int64) (int64, error)
	CountUsers(ctx context.Context) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) countScoped(ctx context.Context, table string, provinceID, createdBy *int64) (int64, error) {
	query := "SELECT COUNT(*) FROM " + table + " WHERE TRUE"
	var args []interface{}
	if provinceID != nil {
		args = append(args, *provinceID)
		query += " AND province_id = $1"
	}
	if createdBy != nil {
		args = append(args, *createdBy)
		if len(args) == 2 {
			query += " AND created_by = $2"
		} else {
			query += " AND created_by = $1"
		}
	}
	var n int64
	err := r.pool.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *repository) CountCompanies(ctx context.Context, provinceID, createdBy *int64) (int64, error) {
	return r.countScoped(ctx, "companies", provinceID, createdBy)
}

func (r *repository) CountProperties(ctx context.Context, createdBy *int64) (int64, error) {
	return r.countScoped(ctx, "property_registrations", nil, createdBy)
}

func (r *repository) CountVehicles(ctx context.Context, createdBy *int64) (int64, error) {
	return r.countScoped(ctx, "vehicle_registrations", nil, createdBy)
}

func (r *repository) CountSecurityBatches(ctx context.Context, provinceID *int64) (int64, error) {
	return r.countScoped(ctx, "security_batches", provinceID, nil)
}

func (r *repository) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// Service assembles the summary.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Summary computes counts for every module the principal can access.
func (s *Service) Summary(ctx context.Context, p authz.Principal) (*Summary, error) {
	counts := make(map[string]int64)
	var mu sync.Mutex

	var ownID *int64
	if !authz.CanViewAllRecords(p.Role, authz.ModuleProperty) || !authz.CanViewAllRecords(p.Role, authz.ModuleCompany) {
		if id, err := strconv.ParseInt(p.UserID, 10, 64); err == nil {
			ownID = &id
		}
	}

	var provinceID *int64
	if p.Role == authz.RoleCompanyRegistrar {
		provinceID = p.ProvinceID
	}

	g, ctx := errgroup.WithContext(ctx)
	add := func(module string, fn func(context.Context) (int64, error)) {
		g.Go(func() error {
			n, err := fn(ctx)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[module] = n
			mu.Unlock()
			return nil
		})
	}

	if authz.CanAccessModule(p.Role, p.LicenseType, authz.ModuleCompany) {
		add(authz.ModuleCompany.String(), func(ctx context.Context) (int64, error) {
			return s.repo.CountCompanies(ctx, provinceID, nil)
		})
	}
	if authz.CanAccessModule(p.Role, p.LicenseType, authz.ModuleProperty) {
		var createdBy *int64
		if !authz.CanViewAllRecords(p.Role, authz.ModuleProperty) {
			createdBy = ownID
		}
		add(authz.ModuleProperty.String(), func(ctx context.Context) (int64, error) {
			return s.repo.CountProperties(ctx, createdBy)
		})
	}
	if authz.CanAccessModule(p.Role, p.LicenseType, authz.ModuleVehicle) {
		var createdBy *int64
		if !authz.CanViewAllRecords(p.Role, authz.ModuleVehicle) {
			createdBy = ownID
		}
		add(authz.ModuleVehicle.String(), func(ctx context.Context) (int64, error) {
			return s.repo.CountVehicles(ctx, createdBy)
		})
	}
	if authz.CanAccessModule(p.Role, p.LicenseType, authz.ModuleSecurities) {
		add(authz.ModuleSecurities.String(), func(ctx context.Context) (int64, error) {
			return s.repo.CountSecurityBatches(ctx, provinceID)
		})
	}
	if authz.CanAccessModule(p.Role, p.LicenseType, authz.ModuleUsers) {
		add(authz.ModuleUsers.String(), func(ctx context.Context) (int64, error) {
			return s.repo.CountUsers(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Summary{Counts: counts}, nil
}
