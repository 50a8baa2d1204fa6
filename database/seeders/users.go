package seeders

import (
	"errors"

	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/auth"
)

func init() {
	Register("users", seedUsers)
}

// DemoPassword is the password of every seeded account.
const DemoPassword = "password123"

func seedUsers(db *gorm.DB) error {
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}
	address := "1 Market Street"

	users := []models.User{
		{Username: "buyer", Email: "buyer@example.com", Password: hash, IsBuyer: true, Address: &address},
		{Username: "supplier1", Email: "supplier1@example.com", Password: hash, IsSupplier: true},
		{Username: "supplier2", Email: "supplier2@example.com", Password: hash, IsSupplier: true},
		{Username: "staff", Email: "staff@example.com", Password: hash, IsStaff: true},
	}
	for _, u := range users {
		var existing models.User
		err := db.Where("username = ?", u.Username).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&u).Error; err != nil {
			return err
		}
	}
	return nil
}
