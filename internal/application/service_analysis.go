package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/imagelens/backend/internal/domain"
)

// Analyze stores the upload, runs label detection with the requested
// provider, and persists the result. The stored file is removed again when
// the provider fails so orphans never accumulate.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (AnalysisPayload, error) {
	if err := s.allow(ctx, req.ClientIP, s.cfg.AnalyzeLimitPerMinute); err != nil {
		return AnalysisPayload{}, err
	}
	if err := s.validateUpload(req.FileName, int64(len(req.Content))); err != nil {
		return AnalysisPayload{}, err
	}

	provider := strings.ToLower(strings.TrimSpace(req.Provider))
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	detector, ok := s.detectors[provider]
	if !ok {
		return AnalysisPayload{}, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, provider)
	}

	filePath, err := s.files.Save(req.UserID, req.FileName, bytes.NewReader(req.Content))
	if err != nil {
		return AnalysisPayload{}, fmt.Errorf("store upload: %w", err)
	}

	labels, err := detector.DetectLabels(ctx, req.Content)
	if err != nil {
		if rmErr := s.files.Remove(filePath); rmErr != nil {
			slog.Default().WarnContext(ctx, "failed to remove upload after provider failure",
				"module", "application",
				"layer", "application",
				"operation", "analyze",
				"outcome", "failure",
				"file_path", filePath,
				"error", rmErr,
			)
		}
		return AnalysisPayload{}, fmt.Errorf("detect labels: %w", err)
	}

	analysis := domain.Analysis{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		FileName:   req.FileName,
		FilePath:   filePath,
		Provider:   provider,
		Labels:     labels,
		AnalyzedAt: s.nowFn(),
	}
	if err := s.analyses.Create(ctx, analysis); err != nil {
		if rmErr := s.files.Remove(filePath); rmErr != nil {
			slog.Default().WarnContext(ctx, "failed to remove upload after persist failure",
				"module", "application",
				"layer", "application",
				"operation", "analyze",
				"outcome", "failure",
				"file_path", filePath,
				"error", rmErr,
			)
		}
		return AnalysisPayload{}, fmt.Errorf("persist analysis: %w", err)
	}

	slog.Default().InfoContext(ctx, "image analyzed",
		"module", "application",
		"layer", "application",
		"operation", "analyze",
		"outcome", "success",
		"user_id", req.UserID,
		"provider", provider,
		"label_count", len(labels),
	)
	return s.analysisPayload(ctx, analysis), nil
}

// History returns the caller's analyses newest-first with page/per_page
// pagination. per_page is capped so a single request cannot dump the table.
func (s *Service) History(ctx context.Context, userID int64, page, perPage int) (HistoryPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	analyses, total, err := s.analyses.ListByUser(ctx, userID, (page-1)*perPage, perPage)
	if err != nil {
		return HistoryPage{}, fmt.Errorf("list analyses: %w", err)
	}

	items := make([]AnalysisPayload, 0, len(analyses))
	for _, analysis := range analyses {
		items = append(items, s.analysisPayload(ctx, analysis))
	}
	return HistoryPage{
		Analyses: items,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
	}, nil
}

// GetAnalysis returns one analysis owned by the caller.
func (s *Service) GetAnalysis(ctx context.Context, analysisID string, userID int64) (AnalysisPayload, error) {
	analysis, err := s.analyses.GetByID(ctx, analysisID, userID)
	if err != nil {
		return AnalysisPayload{}, err
	}
	return s.analysisPayload(ctx, analysis), nil
}

// OpenImage streams the stored image behind an analysis the caller owns.
func (s *Service) OpenImage(ctx context.Context, analysisID string, userID int64) (io.ReadCloser, string, error) {
	analysis, err := s.analyses.GetByID(ctx, analysisID, userID)
	if err != nil {
		return nil, "", err
	}
	reader, err := s.files.Open(analysis.FilePath)
	if err != nil {
		return nil, "", fmt.Errorf("open image: %w", err)
	}
	return reader, analysis.FileName, nil
}

// DeleteAnalysis removes the stored file and then the record. A missing file
// is tolerated so a half-deleted analysis can still be cleaned up.
func (s *Service) DeleteAnalysis(ctx context.Context, analysisID string, userID int64) error {
	analysis, err := s.analyses.GetByID(ctx, analysisID, userID)
	if err != nil {
		return err
	}
	if err := s.files.Remove(analysis.FilePath); err != nil {
		slog.Default().WarnContext(ctx, "failed to remove analysis file",
			"module", "application",
			"layer", "application",
			"operation", "delete_analysis",
			"outcome", "failure",
			"file_path", analysis.FilePath,
			"error", err,
		)
	}
	return s.analyses.Delete(ctx, analysisID, userID)
}

func (s *Service) validateUpload(fileName string, size int64) error {
	if fileName == "" {
		return fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}
	if size == 0 {
		return fmt.Errorf("%w: empty file", domain.ErrInvalidInput)
	}
	if s.cfg.MaxUploadBytes > 0 && size > s.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", domain.ErrInvalidInput, s.cfg.MaxUploadBytes)
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	for _, allowed := range s.cfg.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("%w: extension %q not allowed", domain.ErrInvalidInput, ext)
}

func (s *Service) analysisPayload(ctx context.Context, analysis domain.Analysis) AnalysisPayload {
	translated := s.translateLabels(ctx, analysis.Labels)
	return AnalysisPayload{
		ID:               analysis.ID,
		FileName:         analysis.FileName,
		Provider:         analysis.Provider,
		Labels:           analysis.Labels,
		TranslatedLabels: translated,
		Interpretation:   interpret(analysis.Provider, translated),
		AnalyzedAt:       analysis.AnalyzedAt,
	}
}

// translateLabels is best-effort: a failed translation keeps the original
// label text instead of failing the whole request.
func (s *Service) translateLabels(ctx context.Context, labels []domain.Label) []domain.TranslatedLabel {
	out := make([]domain.TranslatedLabel, 0, len(labels))
	for _, label := range labels {
		name := label.Name
		if s.translator != nil {
			if translated, err := s.translator.Translate(ctx, label.Name, s.cfg.TargetLang); err == nil && translated != "" {
				name = translated
			}
		}
		out = append(out, domain.TranslatedLabel{
			Name:         capitalize(name),
			OriginalName: label.Name,
			Confidence:   int(label.Confidence * 100),
		})
	}
	return out
}

// interpret builds a one-sentence reading of the top result plus up to three
// runner-ups with their confidence percentages.
func interpret(provider string, labels []domain.TranslatedLabel) string {
	providerName := map[string]string{
		"google": "Google Cloud Vision",
		"imagga": "Imagga",
	}[provider]
	if providerName == "" {
		providerName = strings.ToUpper(provider)
	}

	if len(labels) == 0 {
		return fmt.Sprintf("According to the %s model, no elements were detected in the image.", providerName)
	}

	top := labels[0]
	sentence := fmt.Sprintf("According to the %s model, with %d%% confidence the image is identified as **%s**",
		providerName, top.Confidence, top.Name)

	if len(labels) > 1 {
		end := len(labels)
		if end > 4 {
			end = 4
		}
		parts := make([]string, 0, end-1)
		for _, label := range labels[1:end] {
			parts = append(parts, fmt.Sprintf("%s (%d%%)", label.Name, label.Confidence))
		}
		if len(parts) == 1 {
			sentence += ", with similarities to " + parts[0]
		} else {
			sentence += ", with similarities to " + strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
		}
	}
	return sentence + "."
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	return string(unicode.ToUpper(runes[0])) + string(runes[1:])
}
