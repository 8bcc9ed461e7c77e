package securities

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registra-gov/registra/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for form batches.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Batch, error)
	List(ctx context.Context, req ListBatchesRequest) ([]Batch, int, error)
	OverlapExists(ctx context.Context, companyID, serialFrom, serialTo int64) (bool, error)
	Create(ctx context.Context, b Batch) (int64, error)
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

const batchColumns = `id, company_id, serial_from, serial_to, issued_by, issue_date,
	province_id, notes, created_by, created_at, updated_at`

func scanBatch(row pgx.Row) (*Batch, error) {
	var b Batch
	err := row.Scan(&b.ID, &b.CompanyID, &b.SerialFrom, &b.SerialTo, &b.IssuedBy,
		&b.IssueDate, &b.ProvinceID, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Batch, error) {
	return scanBatch(r.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM security_batches WHERE id = $1`, batchColumns), id))
}

func (r *repository) List(ctx context.Context, req ListBatchesRequest) ([]Batch, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.CompanyID != nil {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argPos))
		args = append(args, *req.CompanyID)
		argPos++
	}
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

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM security_batches %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM security_batches %s ORDER BY issue_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		batchColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.SerialFrom, &b.SerialTo, &b.IssuedBy,
			&b.IssueDate, &b.ProvinceID, &b.Notes, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		batches = append(batches, b)
	}
	return batches, total, rows.Err()
}

func (r *repository) OverlapExists(ctx context.Context, companyID, serialFrom, serialTo int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM security_batches
			WHERE company_id = $1 AND serial_from <= $3 AND serial_to >= $2
		)`, companyID, serialFrom, serialTo).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO security_batches (company_id, serial_from, serial_to, issued_by, issue_date,
			province_id, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id`,
		b.CompanyID, b.SerialFrom, b.SerialTo, b.IssuedBy, b.IssueDate,
		b.ProvinceID, b.Notes, b.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE security_batches SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"issued_by", "issue_date", "notes"} {
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
	tag, err := r.db.Exec(ctx, `DELETE FROM security_batches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
