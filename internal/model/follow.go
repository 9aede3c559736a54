package model

import "time"

// Follow user_id 关注 author_id，(user_id, author_id) 唯一
type Follow struct {
	ID        uint64 `gorm:"primaryKey"`
	UserID    uint64 `gorm:"not null;uniqueIndex:uk_follow_user_author,priority:1"`
	AuthorID  uint64 `gorm:"not null;index:idx_follow_author;uniqueIndex:uk_follow_user_author,priority:2"`
	CreatedAt time.Time
}

func (Follow) TableName() string {
	return "follows"
}

const (
	OutboxPending int8 = 0
	OutboxSent    int8 = 1
	OutboxFailed  int8 = 2
)

const (
	EventPostCreated    = "post_created"
	EventCommentCreated = "comment_created"
	EventFollow         = "follow"
	EventUnfollow       = "unfollow"
)

// Outbox 事件表，和业务写入处于同一事务
type Outbox struct {
	ID        uint64 `gorm:"primaryKey"`
	EventType string `gorm:"size:32;not null"`
	Key       string `gorm:"size:64;not null"` // kafka 分区键
	Payload   string `gorm:"type:text;not null"`
	Status    int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry     int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Outbox) TableName() string { return "outbox" }
