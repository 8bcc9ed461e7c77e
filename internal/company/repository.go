package company

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registra-gov/registra/internal/platform/db"
	"github.com/registra-gov/registra/internal/shared"
)

// Repository provides PostgreSQL backed persistence for companies.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Company, error)
	GetByLicenseNo(ctx context.Context, licenseNo string) (*Company, error)
	List(ctx context.Context, req ListCompaniesRequest) ([]Company, int, error)
	Create(ctx context.Context, c Company) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	GenerateCode(ctx context.Context) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const companyColumns = `id, code, name, license_no, license_type, province_id, license_expiry,
	owner_name, phone, address, is_active, created_by, created_at, updated_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.LicenseNo, &c.LicenseType, &c.ProvinceID,
		&c.LicenseExpiry, &c.OwnerName, &c.Phone, &c.Address, &c.IsActive,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Company, error) {
	return scanCompany(r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM companies WHERE id = $1`, companyColumns), id))
}

func (r *repository) GetByLicenseNo(ctx context.Context, licenseNo string) (*Company, error) {
	return scanCompany(r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM companies WHERE license_no = $1`, companyColumns), licenseNo))
}

func (r *repository) List(ctx context.Context, req ListCompaniesRequest) ([]Company, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.ProvinceID != nil {
		conditions = append(conditions, fmt.Sprintf("province_id = $%d", argPos))
		args = append(args, *req.ProvinceID)
		argPos++
	}
	if req.CreatedBy != nil {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", argPos))
		args = append(args, *req.CreatedBy)
		argPos++
	}
	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		pattern := "%" + shared.NormalizeSearchTerm(*req.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR license_no ILIKE $%d OR owner_name ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM companies %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM companies %s ORDER BY code LIMIT $%d OFFSET $%d`,
		companyColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.LicenseNo, &c.LicenseType, &c.ProvinceID,
			&c.LicenseExpiry, &c.OwnerName, &c.Phone, &c.Address, &c.IsActive,
			&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Company) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO companies (code, name, license_no, license_type, province_id, license_expiry,
			owner_name, phone, address, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id`,
		c.Code, c.Name, c.LicenseNo, c.LicenseType, c.ProvinceID, c.LicenseExpiry,
		c.OwnerName, c.Phone, c.Address, c.IsActive, c.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateLicense
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE companies SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "license_type", "license_expiry", "owner_name", "phone", "address", "is_active"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GenerateCode(ctx context.Context) (string, error) {
	var count int64
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM companies").Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("CMP-%05d", count+1), nil
}
