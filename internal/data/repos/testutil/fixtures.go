package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
)

func SeedContent(tb testing.TB, ctx context.Context, tx *gorm.DB, t feed.ContentType, language, topic string, createdAt time.Time) *feed.ContentItem {
	tb.Helper()
	it := feed.NewContentItem(t, topic, language)
	it.Title = "title " + topic
	it.Body = "body"
	if !createdAt.IsZero() {
		it.CreatedAt = createdAt
	}
	if err := tx.WithContext(ctx).Create(&it).Error; err != nil {
		tb.Fatalf("seed content: %v", err)
	}
	return &it
}

func SeedTopicStat(tb testing.TB, ctx context.Context, tx *gorm.DB, topic, language string, freq int64, last time.Time) *feed.TopicStat {
	tb.Helper()
	st := &feed.TopicStat{Topic: topic, Language: language, Frequency: freq, LastMentioned: last}
	if err := tx.WithContext(ctx).Create(st).Error; err != nil {
		tb.Fatalf("seed topic stat: %v", err)
	}
	return st
}
