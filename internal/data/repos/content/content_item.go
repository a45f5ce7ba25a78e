package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

// SeedApproach marks built-in rows that retention never retires.
const SeedApproach = "seed"

type ContentItemRepo interface {
	Create(dbc dbctx.Context, items []*feed.ContentItem) ([]*feed.ContentItem, error)
	ListActive(dbc dbctx.Context, contentType feed.ContentType, language, topic string, limit int) ([]*feed.ContentItem, error)
	ListRandomActive(dbc dbctx.Context, contentType feed.ContentType, language string, limit int) ([]*feed.ContentItem, error)
	RetireSuperseded(dbc dbctx.Context, contentType feed.ContentType, language, topic string, keep []uuid.UUID) (int64, error)
	RetireOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error)
	CountActive(dbc dbctx.Context, contentType feed.ContentType, language string) (int64, error)
	NthActive(dbc dbctx.Context, contentType feed.ContentType, language string, n int) (*feed.ContentItem, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	return &contentItemRepo{
		db:  db,
		log: baseLog.With("repo", "ContentItemRepo"),
	}
}

func (r *contentItemRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *contentItemRepo) Create(dbc dbctx.Context, items []*feed.ContentItem) ([]*feed.ContentItem, error) {
	if len(items) == 0 {
		return []*feed.ContentItem{}, nil
	}
	for _, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = time.Now().UTC()
		}
	}
	if err := r.tx(dbc).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentItemRepo) ListActive(dbc dbctx.Context, contentType feed.ContentType, language, topic string, limit int) ([]*feed.ContentItem, error) {
	var out []*feed.ContentItem
	q := r.tx(dbc).
		Where("content_type = ? AND language = ? AND topic = ? AND active = ?", contentType, language, topic, true).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListRandomActive samples the general pool for users without a topic.
func (r *contentItemRepo) ListRandomActive(dbc dbctx.Context, contentType feed.ContentType, language string, limit int) ([]*feed.ContentItem, error) {
	var out []*feed.ContentItem
	if limit <= 0 {
		return out, nil
	}
	if err := r.tx(dbc).
		Where("content_type = ? AND language = ? AND active = ?", contentType, language, true).
		Order("RANDOM()").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *contentItemRepo) RetireSuperseded(dbc dbctx.Context, contentType feed.ContentType, language, topic string, keep []uuid.UUID) (int64, error) {
	q := r.tx(dbc).Model(&feed.ContentItem{}).
		Where("content_type = ? AND language = ? AND topic = ? AND active = ?", contentType, language, topic, true)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	res := q.Update("active", false)
	return res.RowsAffected, res.Error
}

func (r *contentItemRepo) RetireOlderThan(dbc dbctx.Context, cutoff time.Time) (int64, error) {
	res := r.tx(dbc).Model(&feed.ContentItem{}).
		Where("active = ? AND created_at < ? AND approach <> ?", true, cutoff, SeedApproach).
		Update("active", false)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Info("retired expired content", "rows", res.RowsAffected, "cutoff", cutoff)
	}
	return res.RowsAffected, nil
}

func (r *contentItemRepo) CountActive(dbc dbctx.Context, contentType feed.ContentType, language string) (int64, error) {
	var n int64
	err := r.tx(dbc).Model(&feed.ContentItem{}).
		Where("content_type = ? AND language = ? AND active = ?", contentType, language, true).
		Count(&n).Error
	return n, err
}

// NthActive returns the n-th active row in stable (created_at, id) order, or nil.
func (r *contentItemRepo) NthActive(dbc dbctx.Context, contentType feed.ContentType, language string, n int) (*feed.ContentItem, error) {
	if n < 0 {
		return nil, nil
	}
	var out []*feed.ContentItem
	if err := r.tx(dbc).
		Where("content_type = ? AND language = ? AND active = ?", contentType, language, true).
		Order("created_at ASC").
		Order("id ASC").
		Offset(n).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
