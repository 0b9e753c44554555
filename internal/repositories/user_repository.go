package repositories

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anonto42/microblog/backend/internal/models"
)

// maxUsernameLength matches the users.username column.
const maxUsernameLength = 50

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, username string, firebaseUID *string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	store *Store
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(store *Store) *PostgresUserRepository {
	return &PostgresUserRepository{store: store}
}

// CreateUser registers a handle and issues a fresh API key.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, username string, firebaseUID *string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrInvalidOperation.New("username is empty")
	}
	if utf8.RuneCountInString(username) > maxUsernameLength {
		return nil, ErrInvalidOperation.New("username longer than %d characters", maxUsernameLength)
	}
	if firebaseUID != nil && *firebaseUID == "" {
		firebaseUID = nil
	}

	user := &models.User{
		Username:    username,
		APIKey:      uuid.NewString(),
		FirebaseUID: firebaseUID,
		CreatedAt:   r.store.now(),
	}
	err := r.store.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				if firebaseUID != nil {
					return ErrConflict.New("username %q or firebase account is already registered", username)
				}
				return ErrConflict.New("username %q is taken", username)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.store.query(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound.New("user %d", id)
		}
		return nil, classify(err)
	}
	return &user, nil
}

// GetUserByAPIKey resolves the caller behind an API key.
func (r *PostgresUserRepository) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	var user models.User
	if err := r.store.query(ctx).Where("api_key = ?", apiKey).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound.New("api key")
		}
		return nil, classify(err)
	}
	return &user, nil
}

// GetUserByFirebaseUID retrieves a user by Firebase UID
func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.store.query(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound.New("firebase uid %q", firebaseUID)
		}
		return nil, classify(err)
	}
	return &user, nil
}

// GetUsers retrieves all users ordered by id
func (r *PostgresUserRepository) GetUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := r.store.query(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, classify(err)
	}
	return users, nil
}

// userExists is used inside transactions that must fail with NotFound for an
// unknown user.
func userExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound.New("user %d", id)
	}
	return nil
}
