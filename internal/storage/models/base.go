// internal/storage/models/base.go
package models

import "time"

// BaseModel replaces gorm.Model without the soft-delete column.
type BaseModel struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP;index"`
}
