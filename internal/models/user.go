package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is a registered account. The two counters are denormalized from the
// follows table and are only changed by follow/unfollow transactions.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Username       string    `json:"username" gorm:"size:50;not null;uniqueIndex"`
	APIKey         string    `json:"-" gorm:"size:100;not null;uniqueIndex"`
	FirebaseUID    *string   `json:"firebase_uid,omitempty" gorm:"size:128;uniqueIndex"`
	FollowersCount int64     `json:"followers_count" gorm:"not null;default:0;check:chk_users_followers_count,followers_count >= 0"`
	FollowingCount int64     `json:"following_count" gorm:"not null;default:0;check:chk_users_following_count,following_count >= 0"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserCompact is the public identity shown next to tweets and likes.
type UserCompact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// ToCompact strips a user down to id and handle.
func (u User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Username: u.Username}
}

// CreateUserRequest defines the request body for registering a user. A
// Firebase identity is bound only from a verified ID token, never from the
// body.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,notblank,max=50"`
}

// RegisteredUser is returned once on registration; it is the only response
// that carries the API key.
type RegisteredUser struct {
	User
	APIKey string `json:"api_key"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}
