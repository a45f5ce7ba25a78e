package content

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type TopicStatRepo interface {
	Increment(dbc dbctx.Context, topic, language string, at time.Time) error
	Top(dbc dbctx.Context, language string, since time.Time, limit int) ([]*feed.TopicStat, error)
	Languages(dbc dbctx.Context) ([]string, error)
}

type topicStatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTopicStatRepo(db *gorm.DB, baseLog *logger.Logger) TopicStatRepo {
	return &topicStatRepo{
		db:  db,
		log: baseLog.With("repo", "TopicStatRepo"),
	}
}

func (r *topicStatRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *topicStatRepo) Increment(dbc dbctx.Context, topic, language string, at time.Time) error {
	row := &feed.TopicStat{Topic: topic, Language: language, Frequency: 1, LastMentioned: at.UTC()}
	return r.tx(dbc).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "topic"}, {Name: "language"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"frequency":      gorm.Expr("topic_stat.frequency + 1"),
			"last_mentioned": at.UTC(),
		}),
	}).Create(row).Error
}

// Top lists the most frequent topics mentioned since the cutoff. A zero since means all time.
func (r *topicStatRepo) Top(dbc dbctx.Context, language string, since time.Time, limit int) ([]*feed.TopicStat, error) {
	var out []*feed.TopicStat
	q := r.tx(dbc).Where("language = ?", language)
	if !since.IsZero() {
		q = q.Where("last_mentioned >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Order("frequency DESC").Order("last_mentioned DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *topicStatRepo) Languages(dbc dbctx.Context) ([]string, error) {
	var out []string
	if err := r.tx(dbc).Model(&feed.TopicStat{}).Distinct().Order("language").Pluck("language", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
