package postgres

import (
	"context"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"github.com/compozy/tdlimport/engine/infra/store"
)

var taskColumns = []string{
	"title",
	"status",
	"priority",
	"percentdone",
	"startdate",
	"duedate",
	"creationdate",
	"lastmod",
	"comments",
}

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Tx is one PostgreSQL load transaction.
type Tx struct {
	tx pgx.Tx
}

var _ store.Tx = (*Tx)(nil)

func (t *Tx) InsertTask(ctx context.Context, row *store.TaskRow) (int64, error) {
	query, args, err := builder.Insert("tasks").
		Columns(taskColumns...).
		Values(
			row.Title,
			row.Status,
			row.Priority,
			row.PercentDone,
			row.StartDate,
			row.DueDate,
			row.CreationDate,
			row.LastMod,
			row.Comments,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, store.Fault("build task insert", err)
	}
	var id int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, store.Fault("insert task", err)
	}
	return id, nil
}

func (t *Tx) InsertCategoryIfAbsent(ctx context.Context, name string) (int64, bool, error) {
	query, args, err := builder.Insert("categories").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT (name) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, false, store.Fault("build category insert", err)
	}
	var id int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, store.Fault("insert category", err)
	}
	return id, true, nil
}

func (t *Tx) CategoryID(ctx context.Context, name string) (int64, error) {
	query, args, err := builder.Select("id").
		From("categories").
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return 0, store.Fault("build category lookup", err)
	}
	var id int64
	if err := pgxscan.Get(ctx, t.tx, &id, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return 0, store.Fault("lookup category", store.ErrCategoryNotFound)
		}
		return 0, store.Fault("lookup category", err)
	}
	return id, nil
}

func (t *Tx) LinkTaskCategory(ctx context.Context, taskID, categoryID int64) (bool, error) {
	query, args, err := builder.Insert("task_categories").
		Columns("task_id", "category_id").
		Values(taskID, categoryID).
		Suffix("ON CONFLICT (task_id, category_id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, store.Fault("build link insert", err)
	}
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return false, store.Fault("link task category", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	return store.Fault("commit", t.tx.Commit(ctx))
}

// Rollback aborts the transaction; rolling back a closed transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return store.Fault("rollback", err)
	}
	return nil
}
