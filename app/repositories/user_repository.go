// Package repositories wraps gorm access to the domain tables. Every method
// resolves its handle with database.Conn so it joins a transaction carried
// by ctx.
package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/collection"
	"github.com/shashiranjanraj/bidmarket/pkg/database"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

// FindByID looks up a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var u models.User
	err := r.conn(ctx).First(&u, id).Error
	return u, err
}

// FindByLogin matches either username or email.
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (models.User, error) {
	var u models.User
	err := r.conn(ctx).
		Where("username = ? OR email = ?", login, login).
		Order("id").
		First(&u).Error
	return u, err
}

func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.conn(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error
	return n > 0, err
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.conn(ctx).Create(u).Error
}

func (r *UserRepository) UpdateAddress(ctx context.Context, id uint, address string) error {
	return r.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("address", address).Error
}

// Suppliers lists every supplier except excludeID, by id.
func (r *UserRepository) Suppliers(ctx context.Context, excludeID uint) ([]models.User, error) {
	var users []models.User
	err := r.conn(ctx).
		Where("is_supplier = ? AND id <> ?", true, excludeID).
		Order("id").
		Find(&users).Error
	return users, err
}

// ByIDs loads users keyed by id. Missing ids are absent from the map.
func (r *UserRepository) ByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	ids = collection.Unique(ids)
	if len(ids) == 0 {
		return map[uint]models.User{}, nil
	}
	var users []models.User
	if err := r.conn(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return collection.KeyBy(users, func(u models.User) uint { return u.ID }), nil
}
