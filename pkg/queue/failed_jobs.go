package queue

import (
	"context"
	"time"

	"github.com/shashiranjanraj/bidmarket/pkg/logger"
)

// maxFailedInMemory caps the in-memory failure log.
const maxFailedInMemory = 500

// FailedJobRecord is a row in failed_jobs.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	JobType  string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null;default:0"`
	FailedAt time.Time `gorm:"not null;index"`
}

func (FailedJobRecord) TableName() string { return "failed_jobs" }

func (m *Manager) persistFailed(ctx context.Context, f FailedJob) {
	m.mu.Lock()
	m.failed = append(m.failed, f)
	if len(m.failed) > maxFailedInMemory {
		m.failed = m.failed[len(m.failed)-maxFailedInMemory:]
	}
	db := m.db
	m.mu.Unlock()

	if db == nil {
		return
	}

	record := FailedJobRecord{
		JobType:  f.Type,
		Payload:  string(f.Payload),
		Attempts: f.Attempts,
		FailedAt: f.FailedAt,
	}
	if f.Err != nil {
		record.Error = f.Err.Error()
	}

	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Error("queue: persist failed job", "type", f.Type, "error", err)
	}
}
