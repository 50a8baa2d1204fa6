// Package seeders fills a fresh database with demo accounts.
//
// Seeders register from init functions and run with `bidmarket seed`:
//
//	func init() { seeders.Register("users", seedUsers) }
package seeders

import (
	"fmt"
	"io"
	"sync"

	"gorm.io/gorm"
)

// Func seeds one concern.
type Func func(db *gorm.DB) error

type entry struct {
	name string
	fn   Func
}

var (
	mu      sync.Mutex
	entries []entry
)

// Register adds a seeder. Seeders run in registration order.
func Register(name string, fn Func) {
	mu.Lock()
	defer mu.Unlock()
	entries = append(entries, entry{name: name, fn: fn})
}

// RunAll executes every seeder inside one transaction and stops on the
// first error.
func RunAll(db *gorm.DB, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	mu.Lock()
	current := append([]entry(nil), entries...)
	mu.Unlock()

	return db.Transaction(func(tx *gorm.DB) error {
		for _, e := range current {
			fmt.Fprintf(out, "Seeding: %s\n", e.name)
			if err := e.fn(tx); err != nil {
				return fmt.Errorf("seeder %q: %w", e.name, err)
			}
		}
		return nil
	})
}
