// Package service contains the business logic layer.
//
// This file implements company file uploads: storage quota is reserved
// first, then the object is written.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/DukeRupert/kasir/internal/domain"
	"github.com/DukeRupert/kasir/internal/storage"
	"github.com/google/uuid"
)

// UploadParams describes one file to store for a company.
type UploadParams struct {
	CompanyID   uuid.UUID
	Tier        domain.SubscriptionTier
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadResult is returned for every upload attempt. File fields are set only
// when the upload was accepted.
type UploadResult struct {
	Decision StorageDecision `json:"decision"`
	Key      string          `json:"key,omitempty"`
	URL      string          `json:"url,omitempty"`
}

// UploadService stores company files within the tier's storage cap.
type UploadService interface {
	// Upload reserves Size bytes and writes the file. A denied reservation
	// returns the decision without writing. If the write fails the bytes are
	// released so the accounted total matches what is stored.
	Upload(ctx context.Context, params UploadParams) (UploadResult, error)
}

type uploadService struct {
	quota   StorageQuotaService
	storage storage.Storage
	maxSize int64
	logger  *slog.Logger
}

// NewUploadService creates a new UploadService. maxSize bounds a single file
// regardless of remaining quota; 0 means no per-file limit.
func NewUploadService(quota StorageQuotaService, store storage.Storage, maxSize int64, logger *slog.Logger) UploadService {
	return &uploadService{
		quota:   quota,
		storage: store,
		maxSize: maxSize,
		logger:  logger,
	}
}

func (s *uploadService) Upload(ctx context.Context, params UploadParams) (UploadResult, error) {
	const op = "upload.upload"

	if params.Body == nil || params.Size <= 0 {
		return UploadResult{}, domain.Invalid(op, "file is empty")
	}
	if s.maxSize > 0 && params.Size > s.maxSize {
		return UploadResult{}, domain.Errorf(domain.ETOOLARGE, op, "file exceeds the %d byte upload limit", s.maxSize)
	}

	decision, err := s.quota.EnforceLimit(ctx, params.CompanyID, params.Tier, params.Size)
	if err != nil {
		return UploadResult{}, err
	}
	if !decision.Allowed {
		return UploadResult{Decision: decision}, nil
	}

	key := storage.CompanyFileKey(params.CompanyID, params.Filename)
	putErr := s.storage.Put(ctx, key, params.Body, storage.PutOptions{
		ContentType: params.ContentType,
		MaxSize:     params.Size,
	})
	if putErr != nil {
		s.release(params.CompanyID, params.Size)
		if storage.IsTooLarge(putErr) {
			return UploadResult{}, domain.Invalid(op, "file is larger than its declared size")
		}
		return UploadResult{}, domain.Unavailable(putErr, op, "failed to store file")
	}

	url, err := s.storage.URL(ctx, key, time.Hour)
	if err != nil {
		s.logger.Warn("failed to build file URL", "key", key, "error", err)
	}

	s.logger.Info("file uploaded",
		"company_id", params.CompanyID,
		"key", key,
		"size", params.Size,
		"bytes_used", decision.BytesUsed,
	)

	return UploadResult{Decision: decision, Key: key, URL: url}, nil
}

// release runs on a fresh context: the request context may already be the
// reason the write failed.
func (s *uploadService) release(companyID uuid.UUID, bytes int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.quota.Release(ctx, companyID, bytes); err != nil {
		s.logger.Error("failed to release storage reservation",
			"company_id", companyID,
			"bytes", bytes,
			"error", err,
		)
	}
}
