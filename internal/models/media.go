package models

import "time"

// MaxMediaURLLength bounds the stored media pointer.
const MaxMediaURLLength = 250

// Media is a pointer to an uploaded file. TweetID stays nil until a tweet
// attaches it; Position keeps the order the author gave.
type Media struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TweetID   *uint     `json:"tweet_id" gorm:"index"`
	Position  int       `json:"-" gorm:"not null;default:0"`
	URL       string    `json:"url" gorm:"size:250;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Media) TableName() string { return "medias" }

// Attached reports whether the media already belongs to a tweet.
func (m Media) Attached() bool { return m.TweetID != nil }

// CreateMediaRequest defines the request body for registering an uploaded file
type CreateMediaRequest struct {
	URL string `json:"url" validate:"required,notblank,max=250"`
}
