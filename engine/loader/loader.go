// Package loader persists decoded task nodes into a destination store as one
// transaction.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/compozy/tdlimport/engine/category"
	"github.com/compozy/tdlimport/engine/infra/store"
	"github.com/compozy/tdlimport/engine/normalize"
	"github.com/compozy/tdlimport/engine/tdl"
	"github.com/compozy/tdlimport/pkg/logger"
)

// ErrNilStore is returned when Load is called without a store.
var ErrNilStore = errors.New("loader: store is required")

// State is the transaction state of a load.
type State int

const (
	StateOpen State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Summary describes one load. Inserted, Categories and Links count rows
// created by the run and are zero unless State is StateCommitted.
type Summary struct {
	TaskNodes  int
	Inserted   int
	Skipped    int
	Categories int
	Links      int
	State      State
}

// LoadError is a fault that rolled the load back. Node is -1 when the fault
// is not tied to a task node.
type LoadError struct {
	Node  int
	Title string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Node < 0 {
		return fmt.Sprintf("loader: %v", e.Err)
	}
	if e.Title != "" {
		return fmt.Sprintf("loader: task node %d (%q): %v", e.Node, e.Title, e.Err)
	}
	return fmt.Sprintf("loader: task node %d: %v", e.Node, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load inserts every titled node with its category links inside one
// transaction. Nodes without a title are logged and skipped. Any other fault,
// including context cancellation, rolls the whole transaction back.
func Load(ctx context.Context, st store.Store, nodes []tdl.TaskNode) (*Summary, error) {
	if st == nil {
		return nil, ErrNilStore
	}
	log := logger.FromContext(ctx)
	sum := &Summary{TaskNodes: len(nodes), State: StateRolledBack}
	tx, err := st.Begin(ctx)
	if err != nil {
		return sum, &LoadError{Node: -1, Err: err}
	}
	sum.State = StateOpen
	committed := false
	defer func() {
		if committed {
			return
		}
		if rb := tx.Rollback(ctx); rb != nil {
			log.Warn("loader: rollback failed", "error", rb)
		}
		sum.Inserted, sum.Categories, sum.Links = 0, 0, 0
		sum.State = StateRolledBack
		log.Warn("Load rolled back", "task_nodes", sum.TaskNodes)
	}()

	for _, node := range nodes {
		if err := ctx.Err(); err != nil {
			return sum, &LoadError{Node: node.Index, Err: err}
		}
		rec, err := normalize.Normalize(node)
		if errors.Is(err, normalize.ErrMissingTitle) {
			log.Warn("Skipping task without title", "node", node.Index, "record", node.Raw())
			sum.Skipped++
			continue
		}
		if err != nil {
			return sum, &LoadError{Node: node.Index, Err: err}
		}
		if err := loadRecord(ctx, tx, node, rec, sum); err != nil {
			return sum, &LoadError{Node: node.Index, Title: rec.Title, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return sum, &LoadError{Node: -1, Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return sum, &LoadError{Node: -1, Err: err}
	}
	committed = true
	sum.State = StateCommitted
	log.Info("Data inserted successfully",
		"tasks", sum.Inserted,
		"skipped", sum.Skipped,
		"categories", sum.Categories,
		"links", sum.Links,
	)
	return sum, nil
}

func loadRecord(ctx context.Context, tx store.Tx, node tdl.TaskNode, rec *normalize.Record, sum *Summary) error {
	log := logger.FromContext(ctx)
	if rec.StartDateUnparsed() {
		log.Warn("Start date is not a serial day-count; stored unchanged",
			"node", node.Index, "title", rec.Title, "startdate", rec.RawStartDate)
	}
	log.Debug("Processing task",
		"node", node.Index,
		"title", rec.Title,
		"startdate", deref(rec.StartDate),
		"comments", deref(rec.Comments),
	)
	taskID, err := tx.InsertTask(ctx, toRow(rec))
	if err != nil {
		return err
	}
	sum.Inserted++
	for _, name := range node.Categories {
		res, err := category.Resolve(ctx, tx, name)
		if err != nil {
			return err
		}
		if res.Created {
			sum.Categories++
		}
		linked, err := tx.LinkTaskCategory(ctx, taskID, res.ID)
		if err != nil {
			return err
		}
		if linked {
			sum.Links++
		}
	}
	return nil
}

func toRow(rec *normalize.Record) *store.TaskRow {
	return &store.TaskRow{
		Title:        rec.Title,
		Status:       rec.Status,
		Priority:     rec.Priority,
		PercentDone:  rec.PercentDone,
		StartDate:    rec.StartDate,
		DueDate:      rec.DueDate,
		CreationDate: rec.CreationDate,
		LastMod:      rec.LastMod,
		Comments:     rec.Comments,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
