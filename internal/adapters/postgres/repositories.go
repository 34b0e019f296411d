package postgres

import (
	"gorm.io/gorm"

	"github.com/imagelens/backend/internal/ports"
)

type Repositories struct {
	Users    ports.UserRepository
	Analyses ports.AnalysisRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    &userRepository{db: db},
		Analyses: &analysisRepository{db: db},
	}
}
