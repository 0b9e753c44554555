package models

import "time"

// Follow is a directed edge: FollowerID receives FolloweeID's tweets.
type Follow struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	FollowerID uint      `json:"follower_id" gorm:"not null;uniqueIndex:idx_follows_pair,priority:1"`
	FolloweeID uint      `json:"followee_id" gorm:"not null;uniqueIndex:idx_follows_pair,priority:2;index"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string { return "follows" }
