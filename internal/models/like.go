package models

import "time"

// Like represents a like on a tweet
type Like struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_likes_pair,priority:1"`
	TweetID   uint      `json:"tweet_id" gorm:"not null;uniqueIndex:idx_likes_pair,priority:2;index"`
	CreatedAt time.Time `json:"created_at"`
}

func (Like) TableName() string { return "likes" }
