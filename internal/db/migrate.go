package db

import (
	"gorm.io/gorm"

	"github.com/studiora/studiora-backend/internal/types"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.User{},
		&types.Course{},
		&types.Chapter{},
		&types.Lesson{},
		&types.Enrollment{},
		&types.VideoProgress{},
		&types.LessonProgress{},
		&types.Conversation{},
		&types.Message{},
	)
}

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
