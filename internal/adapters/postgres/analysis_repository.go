package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/imagelens/backend/internal/domain"
)

type analysisRepository struct {
	db *gorm.DB
}

func (r *analysisRepository) Create(ctx context.Context, analysis domain.Analysis) error {
	labels, err := json.Marshal(analysis.Labels)
	if err != nil {
		return err
	}
	rec := analysisModel{
		ID:         analysis.ID,
		UserID:     analysis.UserID,
		FileName:   analysis.FileName,
		FilePath:   analysis.FilePath,
		Provider:   analysis.Provider,
		Labels:     string(labels),
		AnalyzedAt: analysis.AnalyzedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *analysisRepository) ListByUser(ctx context.Context, userID int64, offset, limit int) ([]domain.Analysis, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&analysisModel{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var rows []analysisModel
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("analyzed_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.Analysis, 0, len(rows))
	for _, row := range rows {
		analysis, mapErr := toDomainAnalysis(row)
		if mapErr != nil {
			return nil, 0, mapErr
		}
		out = append(out, analysis)
	}
	return out, total, nil
}

func (r *analysisRepository) GetByID(ctx context.Context, analysisID string, userID int64) (domain.Analysis, error) {
	var rec analysisModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", analysisID, userID).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Analysis{}, domain.ErrNotFound
		}
		return domain.Analysis{}, err
	}
	return toDomainAnalysis(rec)
}

func (r *analysisRepository) Delete(ctx context.Context, analysisID string, userID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", analysisID, userID).
		Delete(&analysisModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
