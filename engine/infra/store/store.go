// Package store defines the gateway the loader uses to reach a destination
// database, independent of the driver behind it.
package store

import "context"

// TaskRow is the persisted form of one task.
type TaskRow struct {
	Title        string  `db:"title"`
	Status       *string `db:"status"`
	Priority     *string `db:"priority"`
	PercentDone  *string `db:"percentdone"`
	StartDate    *string `db:"startdate"`
	DueDate      *string `db:"duedate"`
	CreationDate *string `db:"creationdate"`
	LastMod      *string `db:"lastmod"`
	Comments     *string `db:"comments"`
}

// Counts holds row totals of a destination.
type Counts struct {
	Tasks          int64 `db:"tasks"`
	Categories     int64 `db:"categories"`
	TaskCategories int64 `db:"task_categories"`
}

// Store is an open destination.
type Store interface {
	// Begin opens the single transaction of a load.
	Begin(ctx context.Context) (Tx, error)
	// Counts reports committed row totals.
	Counts(ctx context.Context) (Counts, error)
	Close(ctx context.Context) error
}

// Tx is one open transaction. Every value goes through bound parameters.
type Tx interface {
	// InsertTask inserts one task and returns its new identifier.
	InsertTask(ctx context.Context, row *TaskRow) (int64, error)
	// InsertCategoryIfAbsent inserts name unless it exists. created is false
	// when the insert was a no-op, and id is then meaningless.
	InsertCategoryIfAbsent(ctx context.Context, name string) (id int64, created bool, err error)
	// CategoryID looks up a category by exact name.
	CategoryID(ctx context.Context, name string) (int64, error)
	// LinkTaskCategory associates a task with a category at most once and
	// reports whether a new link was created.
	LinkTaskCategory(ctx context.Context, taskID, categoryID int64) (bool, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Opener provisions and opens the store for a named destination.
type Opener interface {
	Open(ctx context.Context, destination string) (Store, error)
}
