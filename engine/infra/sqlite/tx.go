package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

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

var builder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

// Tx is one SQLite load transaction.
type Tx struct {
	tx *sql.Tx
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
		ToSql()
	if err != nil {
		return 0, store.Fault("build task insert", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, store.Fault("insert task", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, store.Fault("task last insert id", err)
	}
	return id, nil
}

func (t *Tx) InsertCategoryIfAbsent(ctx context.Context, name string) (int64, bool, error) {
	query, args, err := builder.Insert("categories").
		Options("OR IGNORE").
		Columns("name").
		Values(name).
		ToSql()
	if err != nil {
		return 0, false, store.Fault("build category insert", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, false, store.Fault("insert category", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, store.Fault("category rows affected", err)
	}
	if affected == 0 {
		return 0, false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, store.Fault("category last insert id", err)
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
	if err := sqlscan.Get(ctx, t.tx, &id, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return 0, store.Fault("lookup category", store.ErrCategoryNotFound)
		}
		return 0, store.Fault("lookup category", err)
	}
	return id, nil
}

func (t *Tx) LinkTaskCategory(ctx context.Context, taskID, categoryID int64) (bool, error) {
	query, args, err := builder.Insert("task_categories").
		Options("OR IGNORE").
		Columns("task_id", "category_id").
		Values(taskID, categoryID).
		ToSql()
	if err != nil {
		return false, store.Fault("build link insert", err)
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, store.Fault("link task category", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, store.Fault("link rows affected", err)
	}
	return affected > 0, nil
}

func (t *Tx) Commit(_ context.Context) error {
	return store.Fault("commit", t.tx.Commit())
}

// Rollback aborts the transaction. A transaction already ended by context
// cancellation counts as rolled back.
func (t *Tx) Rollback(_ context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return store.Fault("rollback", err)
	}
	return nil
}
