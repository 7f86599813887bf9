package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medicuris/service/internal/metrics"
	"github.com/medicuris/service/internal/storage"
)

const keyPrefix = "uploads/"

var (
	// ErrNotFound is returned when an image record does not exist.
	ErrNotFound = errors.New("image not found")

	// ErrStorageWrite means the object PUT failed; no metadata was written.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrPersistence means the metadata insert failed after the object was written.
	// Unless orphan cleanup is enabled the object remains in the bucket.
	ErrPersistence = errors.New("image metadata persistence failed")
)

// Store is the persistence contract the Service depends on.
type Store interface {
	Create(ctx context.Context, img *Image) error
	GetByID(ctx context.Context, id int64) (*Image, error)
	List(ctx context.Context) ([]Image, error)
}

var _ Store = (*Repository)(nil)

// File is one fully buffered upload.
type File struct {
	Filename    string
	ContentType string
	Data        []byte
}

// UploadResult is returned to the client after a successful upload.
type UploadResult struct {
	ID  int64  `json:"id" example:"12"`
	URL string `json:"url" example:"https://cdn.example.com/medicine-images/uploads/3f2a-aspirin.png"`
}

// Service coordinates object storage and metadata persistence.
type Service struct {
	repo           Store
	storage        storage.Storage
	cleanupOrphans bool
	log            zerolog.Logger

	now      func() time.Time
	newToken func() string
}

// NewService creates a new image Service. With cleanupOrphans set, a failed
// metadata insert triggers a best-effort delete of the object just written.
func NewService(repo Store, store storage.Storage, cleanupOrphans bool, log zerolog.Logger) *Service {
	return &Service{
		repo:           repo,
		storage:        store,
		cleanupOrphans: cleanupOrphans,
		log:            log.With().Str("component", "image-service").Logger(),
		now:            time.Now,
		newToken:       uuid.NewString,
	}
}

// ObjectKey builds the storage key for an upload. The filename is used verbatim.
func ObjectKey(token, filename string) string {
	return keyPrefix + token + "-" + filename
}

// Upload writes f to object storage and then records its metadata. The two
// steps are strictly sequential and not transactional.
func (s *Service) Upload(ctx context.Context, f File) (*UploadResult, error) {
	key := ObjectKey(s.newToken(), f.Filename)
	log := s.log.With().Str("bucket", s.storage.Bucket()).Str("key", key).Logger()

	contentType := f.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(f.Data).String()
	}

	if err := s.storage.Upload(ctx, key, bytes.NewReader(f.Data), int64(len(f.Data)), contentType); err != nil {
		metrics.UploadsTotal.WithLabelValues("storage_error").Inc()
		log.Error().Err(err).Msg("object write failed")
		return nil, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	metrics.UploadBytesTotal.Add(float64(len(f.Data)))

	url := s.storage.PublicURL(key)
	img := &Image{
		Filename:   f.Filename,
		URL:        url,
		UploadedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, img); err != nil {
		metrics.UploadsTotal.WithLabelValues("persistence_error").Inc()
		s.handleOrphan(ctx, log, key, url, err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	metrics.UploadsTotal.WithLabelValues(metrics.StatusSuccess).Inc()
	log.Info().Int64("image_id", img.ID).Int("bytes", len(f.Data)).Str("content_type", contentType).Msg("image uploaded")

	return &UploadResult{ID: img.ID, URL: url}, nil
}

func (s *Service) handleOrphan(ctx context.Context, log zerolog.Logger, key, url string, cause error) {
	if !s.cleanupOrphans {
		metrics.OrphanObjectsTotal.Inc()
		log.Error().Err(cause).Str("url", url).Msg("orphan object: metadata insert failed")
		return
	}

	// The request context may already be cancelled; the delete still has to go out.
	if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		metrics.OrphanObjectsTotal.Inc()
		log.Error().Err(cause).AnErr("cleanup_error", err).Str("url", url).
			Msg("orphan object: metadata insert failed and cleanup delete failed")
		return
	}
	log.Warn().Err(cause).Msg("metadata insert failed; uploaded object deleted")
}

// GetByID returns the image record with id.
func (s *Service) GetByID(ctx context.Context, id int64) (*Image, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all image records.
func (s *Service) List(ctx context.Context) ([]Image, error) {
	return s.repo.List(ctx)
}

// IsNotFound returns true when the error indicates an image was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
