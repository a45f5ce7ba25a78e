package feed

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ContentType string

const (
	ContentArticle ContentType = "article"
	ContentQuote   ContentType = "quote"
	ContentVideo   ContentType = "video"
)

// AllContentTypes is the default set a generation unit produces.
var AllContentTypes = []ContentType{ContentArticle, ContentQuote, ContentVideo}

func (t ContentType) Valid() bool {
	switch t {
	case ContentArticle, ContentQuote, ContentVideo:
		return true
	default:
		return false
	}
}

func ParseContentType(raw string) (ContentType, bool) {
	t := ContentType(raw)
	return t, t.Valid()
}

// ContentItem is immutable once created. Regeneration inserts new rows and retires the
// superseded ones with Active=false.
type ContentItem struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type       ContentType    `gorm:"column:content_type;not null;index:idx_content_lookup,priority:1" json:"type"`
	Language   string         `gorm:"column:language;not null;index:idx_content_lookup,priority:2" json:"language"`
	Topic      string         `gorm:"column:topic;not null;index:idx_content_lookup,priority:3" json:"topic"`
	Title      string         `gorm:"column:title" json:"title,omitempty"`
	Body       string         `gorm:"column:body" json:"body,omitempty"`
	Author     string         `gorm:"column:author" json:"author,omitempty"`
	URL        string         `gorm:"column:url" json:"url,omitempty"`
	Approach   string         `gorm:"column:approach" json:"approach,omitempty"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	IsFallback bool           `gorm:"column:is_fallback;not null;default:false" json:"is_fallback"`
	Active     bool           `gorm:"column:active;not null;default:true;index" json:"active"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (ContentItem) TableName() string { return "content_item" }

// NewContentItem stamps identity and creation time on a freshly generated item.
func NewContentItem(t ContentType, topic, language string) ContentItem {
	return ContentItem{
		ID:        uuid.New(),
		Type:      t,
		Topic:     topic,
		Language:  language,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}
