package migration

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint
	Name string
}

type createWidgets struct{}

func (createWidgets) Up(db *gorm.DB) error   { return db.Migrator().CreateTable(&widget{}) }
func (createWidgets) Down(db *gorm.DB) error { return db.Migrator().DropTable(&widget{}) }

type addIndex struct{}

func (addIndex) Up(db *gorm.DB) error {
	return db.Exec("CREATE INDEX idx_widgets_name ON widgets(name)").Error
}
func (addIndex) Down(db *gorm.DB) error {
	return db.Exec("DROP INDEX idx_widgets_name").Error
}

func withRegistry(t *testing.T, es ...entry) {
	t.Helper()
	saved := registry
	registry = es
	t.Cleanup(func() { registry = saved })
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestRunRollbackStatus(t *testing.T) {
	withRegistry(t,
		entry{"2024_01_02_index", addIndex{}},
		entry{"2024_01_01_widgets", createWidgets{}},
	)
	db := openDB(t)
	var out bytes.Buffer
	r := New(db, &out)

	n, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, db.Migrator().HasTable("widgets"))
	assert.Contains(t, out.String(), "Migrated:  2024_01_01_widgets")

	n, err = r.Run()
	require.NoError(t, err)
	assert.Zero(t, n)

	states, err := r.Status()
	require.NoError(t, err)
	assert.Equal(t, []State{
		{Name: "2024_01_01_widgets", Ran: true, Batch: 1},
		{Name: "2024_01_02_index", Ran: true, Batch: 1},
	}, states)

	n, err = r.Rollback()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, db.Migrator().HasTable("widgets"))

	states, err = r.Status()
	require.NoError(t, err)
	assert.False(t, states[0].Ran)
}

func TestRunWithoutMigrations(t *testing.T) {
	withRegistry(t)
	_, err := New(openDB(t), nil).Run()
	assert.ErrorIs(t, err, ErrNoMigrations)
}

func TestRegisteredIsSorted(t *testing.T) {
	withRegistry(t, entry{"b", createWidgets{}}, entry{"a", addIndex{}})
	assert.Equal(t, []string{"a", "b"}, Registered())
}
