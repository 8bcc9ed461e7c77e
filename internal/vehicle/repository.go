package vehicle

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

// Repository provides PostgreSQL backed persistence for registrations.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Registration, error)
	List(ctx context.Context, req ListRegistrationsRequest) ([]Registration, int, error)
	Create(ctx context.Context, reg Registration) (int64, error)
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

const registrationColumns = `id, code, plate_no, vin, make, model, year, price, seller_name,
	seller_national_id, buyer_name, buyer_national_id, province_id, company_id, sale_date,
	notes, created_by, created_at, updated_at`

func scanRegistration(row pgx.Row) (*Registration, error) {
	var reg Registration
	err := row.Scan(&reg.ID, &reg.Code, &reg.PlateNo, &reg.VIN, &reg.Make, &reg.Model, &reg.Year,
		&reg.Price, &reg.SellerName, &reg.SellerNationalID, &reg.BuyerName, &reg.BuyerNationalID,
		&reg.ProvinceID, &reg.CompanyID, &reg.SaleDate, &reg.Notes,
		&reg.CreatedBy, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Registration, error) {
	return scanRegistration(r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM vehicle_registrations WHERE id = $1`, registrationColumns), id))
}

func (r *repository) List(ctx context.Context, req ListRegistrationsRequest) ([]Registration, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.ProvinceID != nil {
		conditions = append(conditions, fmt.Sprintf("province_id = $%d", argPos))
		args = append(args, *req.ProvinceID)
		argPos++
	}
	if req.CompanyID != nil {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argPos))
		args = append(args, *req.CompanyID)
		argPos++
	}
	if req.CreatedBy != nil {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", argPos))
		args = append(args, *req.CreatedBy)
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		pattern := "%" + shared.NormalizeSearchTerm(*req.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(plate_no ILIKE $%d OR vin ILIKE $%d OR seller_name ILIKE $%d OR buyer_name ILIKE $%d)", argPos, argPos, argPos, argPos))
		args = append(args, pattern)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM vehicle_registrations %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM vehicle_registrations %s ORDER BY sale_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		registrationColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.ID, &reg.Code, &reg.PlateNo, &reg.VIN, &reg.Make, &reg.Model, &reg.Year,
			&reg.Price, &reg.SellerName, &reg.SellerNationalID, &reg.BuyerName, &reg.BuyerNationalID,
			&reg.ProvinceID, &reg.CompanyID, &reg.SaleDate, &reg.Notes,
			&reg.CreatedBy, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return nil, 0, err
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, reg Registration) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO vehicle_registrations (code, plate_no, vin, make, model, year, price,
			seller_name, seller_national_id, buyer_name, buyer_national_id, province_id,
			company_id, sale_date, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW())
		RETURNING id`,
		reg.Code, reg.PlateNo, reg.VIN, reg.Make, reg.Model, reg.Year, reg.Price,
		reg.SellerName, reg.SellerNationalID, reg.BuyerName, reg.BuyerNationalID,
		reg.ProvinceID, reg.CompanyID, reg.SaleDate, reg.Notes, reg.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateVIN
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE vehicle_registrations SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"plate_no", "price", "seller_name", "buyer_name", "sale_date", "notes"} {
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
	tag, err := r.db.Exec(ctx, `DELETE FROM vehicle_registrations WHERE id = $1`, id)
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
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM vehicle_registrations").Scan(&count); err != nil {
		return "", err
	}
	return fmt.Sprintf("VEH-%06d", count+1), nil
}
