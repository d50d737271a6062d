// Package storetest provides an in-memory store with fault injection for tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/compozy/tdlimport/engine/infra/store"
)

// ErrInjected is the cause of every injected fault.
var ErrInjected = errors.New("storetest: injected fault")

// Op names an operation that can be made to fail.
type Op string

const (
	OpBegin          Op = "begin"
	OpInsertTask     Op = "insert task"
	OpInsertCategory Op = "insert category"
	OpCategoryID     Op = "lookup category"
	OpLink           Op = "link task category"
	OpCommit         Op = "commit"
)

type link struct {
	task, category int64
}

type state struct {
	tasks      map[int64]store.TaskRow
	categories map[string]int64
	links      map[link]struct{}
	nextTask   int64
	nextCat    int64
}

func (s *state) clone() *state {
	return &state{
		tasks:      maps.Clone(s.tasks),
		categories: maps.Clone(s.categories),
		links:      maps.Clone(s.links),
		nextTask:   s.nextTask,
		nextCat:    s.nextCat,
	}
}

// Memory is a transactional in-memory destination.
type Memory struct {
	mu        sync.Mutex
	committed *state
	calls     map[Op]int
	failAt    map[Op]int

	Begins    int
	Commits   int
	Rollbacks int
	Closed    bool
}

var _ store.Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		committed: &state{
			tasks:      map[int64]store.TaskRow{},
			categories: map[string]int64{},
			links:      map[link]struct{}{},
		},
		calls:  map[Op]int{},
		failAt: map[Op]int{},
	}
}

// FailOn makes the nth call (1-based) of op return a store fault.
func (m *Memory) FailOn(op Op, nth int) *Memory {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt[op] = nth
	return m
}

func (m *Memory) hit(op Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	if n, ok := m.failAt[op]; ok && n == m.calls[op] {
		return store.Fault(string(op), ErrInjected)
	}
	return nil
}

// Tasks returns committed task rows keyed by id.
func (m *Memory) Tasks() map[int64]store.TaskRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.committed.tasks)
}

// CategoryNames returns committed category ids keyed by name.
func (m *Memory) CategoryNames() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.committed.categories)
}

func (m *Memory) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.Fault(string(OpBegin), err)
	}
	if err := m.hit(OpBegin); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Begins++
	return &memoryTx{m: m, work: m.committed.clone()}, nil
}

func (m *Memory) Counts(_ context.Context) (store.Counts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return store.Counts{
		Tasks:          int64(len(m.committed.tasks)),
		Categories:     int64(len(m.committed.categories)),
		TaskCategories: int64(len(m.committed.links)),
	}, nil
}

func (m *Memory) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

type memoryTx struct {
	m    *Memory
	work *state
	done bool
}

func (t *memoryTx) check(ctx context.Context, op Op) error {
	if t.done {
		return store.Fault(string(op), errors.New("transaction already finished"))
	}
	if err := ctx.Err(); err != nil {
		return store.Fault(string(op), err)
	}
	return t.m.hit(op)
}

func (t *memoryTx) InsertTask(ctx context.Context, row *store.TaskRow) (int64, error) {
	if err := t.check(ctx, OpInsertTask); err != nil {
		return 0, err
	}
	if row.Title == "" {
		return 0, store.Fault(string(OpInsertTask), errors.New("title violates not-null constraint"))
	}
	t.work.nextTask++
	t.work.tasks[t.work.nextTask] = *row
	return t.work.nextTask, nil
}

func (t *memoryTx) InsertCategoryIfAbsent(ctx context.Context, name string) (int64, bool, error) {
	if err := t.check(ctx, OpInsertCategory); err != nil {
		return 0, false, err
	}
	if _, ok := t.work.categories[name]; ok {
		return 0, false, nil
	}
	t.work.nextCat++
	t.work.categories[name] = t.work.nextCat
	return t.work.nextCat, true, nil
}

func (t *memoryTx) CategoryID(ctx context.Context, name string) (int64, error) {
	if err := t.check(ctx, OpCategoryID); err != nil {
		return 0, err
	}
	id, ok := t.work.categories[name]
	if !ok {
		return 0, store.Fault(string(OpCategoryID), store.ErrCategoryNotFound)
	}
	return id, nil
}

func (t *memoryTx) LinkTaskCategory(ctx context.Context, taskID, categoryID int64) (bool, error) {
	if err := t.check(ctx, OpLink); err != nil {
		return false, err
	}
	if _, ok := t.work.tasks[taskID]; !ok {
		return false, store.Fault(string(OpLink), fmt.Errorf("task %d: foreign key violation", taskID))
	}
	key := link{task: taskID, category: categoryID}
	if _, ok := t.work.links[key]; ok {
		return false, nil
	}
	t.work.links[key] = struct{}{}
	return true, nil
}

func (t *memoryTx) Commit(ctx context.Context) error {
	if err := t.check(ctx, OpCommit); err != nil {
		return err
	}
	t.done = true
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.committed = t.work
	t.m.Commits++
	return nil
}

func (t *memoryTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.Rollbacks++
	return nil
}
