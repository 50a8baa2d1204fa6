// Package testkit holds helpers shared by package tests: a migrated
// in-memory database, record factories and HTTP request shortcuts.
package testkit

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	_ "github.com/shashiranjanraj/bidmarket/database/migrations"
	"github.com/shashiranjanraj/bidmarket/pkg/auth"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
	"github.com/shashiranjanraj/bidmarket/pkg/migration"
)

// Password is the plain-text password of every user made by CreateUser.
const Password = "secret-pass"

// NewDB opens a private, fully migrated sqlite database that lives as long
// as the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(4)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = migration.New(db, nil).Run()
	require.NoError(t, err)
	return db
}

var passwordHash string

// CreateUser inserts u, filling email and password when empty.
func CreateUser(t testing.TB, db *gorm.DB, u models.User) models.User {
	t.Helper()
	if u.Email == "" {
		u.Email = u.Username + "@example.com"
	}
	if u.Password == "" {
		if passwordHash == "" {
			h, err := auth.HashPassword(Password)
			require.NoError(t, err)
			passwordHash = h
		}
		u.Password = passwordHash
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
