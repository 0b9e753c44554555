package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/anonto42/microblog/backend/internal/models"
)

// MediaRepository defines the interface for media pointer operations
type MediaRepository interface {
	CreateMedia(ctx context.Context, url string) (*models.Media, error)
	GetMedias(ctx context.Context) ([]models.Media, error)
}

// PostgresMediaRepository implements MediaRepository for PostgreSQL
type PostgresMediaRepository struct {
	store *Store
}

// NewPostgresMediaRepository creates a new PostgresMediaRepository
func NewPostgresMediaRepository(store *Store) *PostgresMediaRepository {
	return &PostgresMediaRepository{store: store}
}

// CreateMedia registers an uploaded file by URL. The row stays unattached
// until a tweet claims it.
func (r *PostgresMediaRepository) CreateMedia(ctx context.Context, url string) (*models.Media, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrInvalidOperation.New("media url is empty")
	}
	if len(url) > models.MaxMediaURLLength {
		return nil, ErrInvalidOperation.New("media url longer than %d bytes", models.MaxMediaURLLength)
	}

	media := &models.Media{URL: url, CreatedAt: r.store.now()}
	err := r.store.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(media).Error
	})
	if err != nil {
		return nil, err
	}
	return media, nil
}

func (r *PostgresMediaRepository) GetMedias(ctx context.Context) ([]models.Media, error) {
	medias := []models.Media{}
	if err := r.store.query(ctx).Order("id").Find(&medias).Error; err != nil {
		return nil, classify(err)
	}
	return medias, nil
}
