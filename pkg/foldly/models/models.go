package models

import "gorm.io/gorm"

// AllModels returns all models for migration
// Note: Workspace depends on User, and Link/Permission/File/Folder depend on Workspace
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Workspace{},
		&Link{},
		&Permission{},
		&Folder{},
		&File{},
	}
}

// AutoMigrate runs GORM auto-migration for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
