package postgres

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/imagelens/backend/internal/domain"
)

func toDomainUser(row userModel) domain.User {
	return domain.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
		LastLoginAt:  row.LastLoginAt,
	}
}

func toDomainAnalysis(row analysisModel) (domain.Analysis, error) {
	var labels []domain.Label
	if row.Labels != "" {
		if err := json.Unmarshal([]byte(row.Labels), &labels); err != nil {
			return domain.Analysis{}, err
		}
	}
	return domain.Analysis{
		ID:         row.ID,
		UserID:     row.UserID,
		FileName:   row.FileName,
		FilePath:   row.FilePath,
		Provider:   row.Provider,
		Labels:     labels,
		AnalyzedAt: row.AnalyzedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
