package cache

import (
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
)

const prefix = "feed:"

// Topic arguments are canonical topic keys (see topic.Key), never raw labels.

func UserTopicKey(userID string) string { return prefix + "user_topic:" + userID }

func ContentKey(t feed.ContentType, language, topicKey string) string {
	return prefix + "content:" + string(t) + ":" + language + ":" + topicKey
}

func GeneralPoolKey(t feed.ContentType, language string) string {
	return prefix + "pool:" + string(t) + ":" + language
}

func GenerationLockKey(language, topicKey string) string {
	return prefix + "lock:gen:" + language + ":" + topicKey
}

func FreshKey(language, topicKey string) string {
	return prefix + "fresh:" + language + ":" + topicKey
}

func TaskKey(taskID string) string { return prefix + "task:" + taskID }

func PopularTopicsKey(language string) string { return prefix + "popular:" + language }

func DailyQuoteKey(language, day string) string {
	return prefix + "daily_quote:" + language + ":" + day
}

func SchedulerLockKey(job string) string { return prefix + "lock:sched:" + job }

func VideoQuotaKey() string { return prefix + "youtube:quota_exceeded" }
