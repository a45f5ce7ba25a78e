package feed

import "time"

// UserTopicRecord is the per-user current topic. It lives only in the cache store and
// expires after the inactivity window, after which the user is topicless.
type UserTopicRecord struct {
	UserID    string    `json:"user_id"`
	Topic     string    `json:"topic,omitempty"`
	Language  string    `json:"language,omitempty"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *UserTopicRecord) HasTopic() bool {
	return r != nil && r.Topic != ""
}

// TopicStat is the popularity aggregate read by the scheduler.
type TopicStat struct {
	Topic         string    `gorm:"column:topic;primaryKey" json:"topic"`
	Language      string    `gorm:"column:language;primaryKey" json:"language"`
	Frequency     int64     `gorm:"column:frequency;not null;default:1;index" json:"frequency"`
	LastMentioned time.Time `gorm:"column:last_mentioned;not null;index" json:"last_mentioned"`
}

func (TopicStat) TableName() string { return "topic_stat" }
