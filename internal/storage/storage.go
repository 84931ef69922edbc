package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"vinyl-store/internal/breaker"
	"vinyl-store/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Folder groups uploads on the asset host
type Folder string

const (
	FolderProducts       Folder = "products"
	FolderEvents         Folder = "events"
	FolderPaymentProofs  Folder = "payment_proofs"
	FolderShippingProofs Folder = "shipping_proofs"
)

var (
	ErrUnsupportedImage = errors.New("only jpg and png images are accepted")
	ErrFileTooLarge     = errors.New("file exceeds the upload limit")
	ErrNotConfigured    = errors.New("asset storage is not configured")
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// File is an uploaded attachment held in memory
type File struct {
	Name string
	Data []byte
}

// ValidateImage sniffs the content and enforces the size limit
func ValidateImage(file *File, maxSize int64) error {
	if int64(len(file.Data)) > maxSize {
		return ErrFileTooLarge
	}
	if !allowedImageTypes[mimetype.Detect(file.Data).String()] {
		return ErrUnsupportedImage
	}
	return nil
}

// Store uploads files and returns their public URL
type Store interface {
	Upload(ctx context.Context, folder Folder, file *File) (string, error)
}

type cloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
	tracer trace.Tracer
}

// NewStore returns a Cloudinary-backed store, or one that rejects every
// upload when no credentials are configured.
func NewStore(cfg config.AssetsConfig, logger *zap.Logger) (Store, error) {
	if cfg.CloudName == "" {
		logger.Warn("Cloudinary credentials missing, uploads are disabled")
		return unconfiguredStore{}, nil
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}

	return &cloudinaryStore{
		cld:    cld,
		cb:     breaker.New("cloudinary", logger),
		logger: logger,
		tracer: otel.Tracer("storage/cloudinary"),
	}, nil
}

func (s *cloudinaryStore) Upload(ctx context.Context, folder Folder, file *File) (string, error) {
	ctx, span := s.tracer.Start(ctx, "cloudinary.Upload")
	defer span.End()

	span.SetAttributes(
		attribute.String("folder", string(folder)),
		attribute.Int("size", len(file.Data)),
	)

	url, err := breaker.Execute(s.cb, func() (string, error) {
		resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(file.Data), uploader.UploadParams{
			Folder:   string(folder),
			PublicID: uuid.NewString(),
		})
		if err != nil {
			return "", err
		}
		if resp.Error.Message != "" {
			return "", errors.New(resp.Error.Message)
		}
		return resp.SecureURL, nil
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Error("Upload failed",
			zap.String("folder", string(folder)),
			zap.String("file", file.Name),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to upload %s: %w", file.Name, err)
	}

	return url, nil
}

type unconfiguredStore struct{}

func (unconfiguredStore) Upload(context.Context, Folder, *File) (string, error) {
	return "", ErrNotConfigured
}
