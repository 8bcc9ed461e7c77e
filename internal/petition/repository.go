package petition

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

// Repository provides PostgreSQL backed persistence for licenses.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*License, error)
	List(ctx context.Context, req ListLicensesRequest) ([]License, int, error)
	Create(ctx context.Context, lic License) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
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

const licenseColumns = `id, license_no, holder_name, national_id, province_id, issue_date,
	license_expiry, office_address, phone, is_active, created_by, created_at, updated_at`

func scanLicense(row pgx.Row) (*License, error) {
	var lic License
	err := row.Scan(&lic.ID, &lic.LicenseNo, &lic.HolderName, &lic.NationalID, &lic.ProvinceID,
		&lic.IssueDate, &lic.LicenseExpiry, &lic.OfficeAddress, &lic.Phone, &lic.IsActive,
		&lic.CreatedBy, &lic.CreatedAt, &lic.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lic, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*License, error) {
	return scanLicense(r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM petition_licenses WHERE id = $1`, licenseColumns), id))
}

func (r *repository) List(ctx context.Context, req ListLicensesRequest) ([]License, int, error) {
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
		conditions = append(conditions, fmt.Sprintf("(holder_name ILIKE $%d OR license_no ILIKE $%d OR national_id ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM petition_licenses %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM petition_licenses %s ORDER BY license_no LIMIT $%d OFFSET $%d`,
		licenseColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var licenses []License
	for rows.Next() {
		var lic License
		if err := rows.Scan(&lic.ID, &lic.LicenseNo, &lic.HolderName, &lic.NationalID, &lic.ProvinceID,
			&lic.IssueDate, &lic.LicenseExpiry, &lic.OfficeAddress, &lic.Phone, &lic.IsActive,
			&lic.CreatedBy, &lic.CreatedAt, &lic.UpdatedAt); err != nil {
			return nil, 0, err
		}
		licenses = append(licenses, lic)
	}
	return licenses, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, lic License) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO petition_licenses (license_no, holder_name, national_id, province_id, issue_date,
			license_expiry, office_address, phone, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id`,
		lic.LicenseNo, lic.HolderName, lic.NationalID, lic.ProvinceID, lic.IssueDate,
		lic.LicenseExpiry, lic.OfficeAddress, lic.Phone, lic.IsActive, lic.CreatedBy).Scan(&id)
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
	query := "UPDATE petition_licenses SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"holder_name", "license_expiry", "office_address", "phone", "is_active"} {
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
	tag, err := r.db.Exec(ctx, `DELETE FROM petition_licenses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
