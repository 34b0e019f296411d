package postgres

import (
	"time"
)

type userModel struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	Username     string     `gorm:"column:username"`
	PasswordHash string     `gorm:"column:password_hash"`
	IsActive     bool       `gorm:"column:is_active"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

func (userModel) TableName() string { return "users" }

type analysisModel struct {
	ID         string    `gorm:"column:id;type:uuid;primaryKey"`
	UserID     int64     `gorm:"column:user_id"`
	FileName   string    `gorm:"column:file_name"`
	FilePath   string    `gorm:"column:file_path"`
	Provider   string    `gorm:"column:provider"`
	Labels     string    `gorm:"column:labels;type:jsonb"`
	AnalyzedAt time.Time `gorm:"column:analyzed_at"`
}

func (analysisModel) TableName() string { return "analyses" }
