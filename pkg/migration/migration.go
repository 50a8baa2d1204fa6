// Package migration applies and tracks schema migrations.
//
// Migrations register themselves from init functions in database/migrations:
//
//	func init() {
//	    migration.Register("2024_01_01_000001_create_users_table", createUsers{})
//	}
//
// and run through the CLI (`bidmarket migrate`, `migrate:rollback`,
// `migrate:status`).
package migration

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shashiranjanraj/bidmarket/pkg/logger"
	"gorm.io/gorm"
)

// Migration is one reversible schema step.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

type entry struct {
	name string
	m    Migration
}

var registry []entry

// Register adds m under name. Names sort chronologically.
func Register(name string, m Migration) {
	registry = append(registry, entry{name: name, m: m})
}

// Registered returns the registered names in run order.
func Registered() []string {
	names := make([]string, len(registry))
	for i, e := range sorted(registry) {
		names[i] = e.name
	}
	return names
}

func sorted(es []entry) []entry {
	out := append([]entry(nil), es...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// ErrNoMigrations is returned by Run when nothing is registered.
var ErrNoMigrations = errors.New("migration: no migrations registered")

// Runner executes and tracks migrations against one database.
type Runner struct {
	db  *gorm.DB
	out io.Writer
	all []entry
}

// New creates a Runner over the global registry. Progress lines go to out,
// which may be nil.
func New(db *gorm.DB, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, out: out, all: sorted(registry)}
}

func (r *Runner) ensureTable() error {
	return r.db.AutoMigrate(&record{})
}

func (r *Runner) ran() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, rec := range rows {
		out[rec.Name] = rec
	}
	return out, nil
}

func (r *Runner) lastBatch() (int, error) {
	var res struct{ Max int }
	err := r.db.Model(&record{}).Select("COALESCE(MAX(batch), 0) AS max").Scan(&res).Error
	return res.Max, err
}

// Run applies every pending migration as one new batch and returns how many
// ran.
func (r *Runner) Run() (int, error) {
	if len(r.all) == 0 {
		return 0, ErrNoMigrations
	}
	if err := r.ensureTable(); err != nil {
		return 0, fmt.Errorf("migration: ensure table: %w", err)
	}

	done, err := r.ran()
	if err != nil {
		return 0, fmt.Errorf("migration: load history: %w", err)
	}
	last, err := r.lastBatch()
	if err != nil {
		return 0, fmt.Errorf("migration: last batch: %w", err)
	}
	batch := last + 1

	n := 0
	for _, e := range r.all {
		if _, ok := done[e.name]; ok {
			continue
		}
		fmt.Fprintf(r.out, "Migrating: %s\n", e.name)
		if err := e.m.Up(r.db); err != nil {
			return n, fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		if err := r.db.Create(&record{Name: e.name, Batch: batch}).Error; err != nil {
			return n, fmt.Errorf("migration: record %s: %w", e.name, err)
		}
		fmt.Fprintf(r.out, "Migrated:  %s\n", e.name)
		n++
	}

	if n == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
	}
	logger.Info("migration: done", "ran", n, "batch", batch)
	return n, nil
}

// Rollback reverses the most recent batch and returns how many were undone.
func (r *Runner) Rollback() (int, error) {
	if err := r.ensureTable(); err != nil {
		return 0, fmt.Errorf("migration: ensure table: %w", err)
	}
	last, err := r.lastBatch()
	if err != nil {
		return 0, err
	}
	if last == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return 0, nil
	}

	var rows []record
	if err := r.db.Where("batch = ?", last).Order("id DESC").Find(&rows).Error; err != nil {
		return 0, err
	}

	byName := make(map[string]Migration, len(r.all))
	for _, e := range r.all {
		byName[e.name] = e.m
	}

	n := 0
	for _, rec := range rows {
		m, ok := byName[rec.Name]
		if !ok {
			return n, fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "Rolling back: %s\n", rec.Name)
		if err := m.Down(r.db); err != nil {
			return n, fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if err := r.db.Delete(&rec).Error; err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// State is one line of Status output.
type State struct {
	Name  string
	Ran   bool
	Batch int
}

// Status lists every registered migration with whether it has run.
func (r *Runner) Status() ([]State, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.ran()
	if err != nil {
		return nil, err
	}

	out := make([]State, 0, len(r.all))
	for _, e := range r.all {
		rec, ok := done[e.name]
		out = append(out, State{Name: e.name, Ran: ok, Batch: rec.Batch})
	}
	return out, nil
}
