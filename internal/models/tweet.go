package models

import "time"

// MaxTweetLength is the maximum tweet length in characters (code points).
const MaxTweetLength = 250

// Tweet is a short text post. LikesCount mirrors the number of rows in likes
// for this tweet.
type Tweet struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	AuthorID   uint      `json:"author_id" gorm:"not null;index"`
	Content    string    `json:"content" gorm:"size:250;not null"`
	LikesCount int64     `json:"likes_count" gorm:"not null;default:0;check:chk_tweets_likes_count,likes_count >= 0"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// CreateTweetRequest defines the request body for posting a tweet
type CreateTweetRequest struct {
	Content  string `json:"text"`
	MediaIDs []uint `json:"media_ids,omitempty" validate:"omitempty,max=10,dive,min=1"`
}

// TweetSummary is the flat listing form of a tweet.
type TweetSummary struct {
	ID        uint      `json:"id"`
	Text      string    `json:"text"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the listing form of t.
func (t Tweet) Summary() TweetSummary {
	return TweetSummary{ID: t.ID, Text: t.Content, UserID: t.AuthorID, CreatedAt: t.CreatedAt}
}

// TweetView is a tweet assembled for reading: author, attachments in post
// order and the users who liked it.
type TweetView struct {
	ID          uint          `json:"id"`
	Content     string        `json:"content"`
	LikesCount  int64         `json:"likes_count"`
	CreatedAt   time.Time     `json:"created_at"`
	Author      UserCompact   `json:"author"`
	Attachments []string      `json:"attachments"`
	Likes       []UserCompact `json:"likes"`
}
