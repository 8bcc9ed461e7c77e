package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the audit trail. Writes happen through the shared
// audit logger; this package never inserts.
type Repository interface {
	List(ctx context.Context, req ListEntriesRequest) ([]Entry, int, error)
	CountByModule(ctx context.Context, from, to time.Time) ([]ModuleCount, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, req ListEntriesRequest) ([]Entry, int, error) {
	conditions := []string{"TRUE"}
	var args []interface{}
	argPos := 1

	if req.ActorID != nil {
		conditions = append(conditions, fmt.Sprintf("actor_id = $%d", argPos))
		args = append(args, *req.ActorID)
		argPos++
	}
	if req.Module != nil {
		conditions = append(conditions, fmt.Sprintf("module = $%d", argPos))
		args = append(args, *req.Module)
		argPos++
	}
	if req.Action != nil {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argPos))
		args = append(args, *req.Action)
		argPos++
	}
	if req.From != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", argPos))
		args = append(args, *req.From)
		argPos++
	}
	if req.To != nil {
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", argPos))
		args = append(args, *req.To)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM audit_logs %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, action, module, entity_id, meta, occurred_at
		FROM audit_logs %s
		ORDER BY occurred_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Module, &e.EntityID, &e.Meta, &e.OccurredAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *repository) CountByModule(ctx context.Context, from, to time.Time) ([]ModuleCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT module, COUNT(*)
		FROM audit_logs
		WHERE occurred_at >= $1 AND occurred_at < $2
		GROUP BY module
		ORDER BY module`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ModuleCount
	for rows.Next() {
		var mc ModuleCount
		if err := rows.Scan(&mc.Module, &mc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}
