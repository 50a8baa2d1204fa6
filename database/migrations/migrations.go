// Package migrations registers the schema. Importing it (usually for side
// effects) makes every migration available to the migration runner.
package migrations

import (
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bidmarket/app/models"
	"github.com/shashiranjanraj/bidmarket/pkg/migration"
	"github.com/shashiranjanraj/bidmarket/pkg/queue"
)

func init() {
	migration.Register("2025_01_01_000001_create_users_table", tables{&models.User{}})
	migration.Register("2025_01_01_000002_create_orders_tables", tables{&models.Order{}, &models.OrderItem{}, &models.SentOrderItem{}})
	migration.Register("2025_01_01_000003_create_offers_tables", tables{&models.Offer{}, &models.ItemOffer{}})
	migration.Register("2025_01_01_000004_create_notifications_table", tables{&models.Notification{}})
	migration.Register("2025_01_01_000005_create_failed_jobs_table", tables{&queue.FailedJobRecord{}})
}

// tables creates its models in order on Up and drops them in reverse on Down.
type tables []any

func (t tables) Up(db *gorm.DB) error {
	return db.AutoMigrate(t...)
}

func (t tables) Down(db *gorm.DB) error {
	for i := len(t) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(t[i]); err != nil {
			return err
		}
	}
	return nil
}
