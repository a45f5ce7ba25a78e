package topic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type DecisionKind string

const (
	DecisionUnchanged DecisionKind = "unchanged"
	DecisionChanged   DecisionKind = "changed"
	DecisionNew       DecisionKind = "new"
)

// Decision is the normalizer's verdict. Label is set for Changed and New only.
type Decision struct {
	Kind  DecisionKind `json:"kind"`
	Label string       `json:"label,omitempty"`
	Score float64      `json:"score,omitempty"`
}

func Unchanged() Decision            { return Decision{Kind: DecisionUnchanged} }
func Changed(label string) Decision { return Decision{Kind: DecisionChanged, Label: label} }
func New(label string) Decision     { return Decision{Kind: DecisionNew, Label: label} }

// TriggersGeneration reports whether the decision moves the user to a new topic.
func (d Decision) TriggersGeneration() bool {
	return d.Kind == DecisionChanged || d.Kind == DecisionNew
}

type Normalizer struct {
	store   cache.Store
	judge   *Judge
	ttl     time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewNormalizer(log *logger.Logger, store cache.Store, judge *Judge, ttl time.Duration, metrics *observability.Metrics) *Normalizer {
	return &Normalizer{
		store:   store,
		judge:   judge,
		ttl:     ttl,
		log:     log.With("service", "TopicNormalizer"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Decide is a pure function of its inputs: an empty label means none.
func (n *Normalizer) Decide(ctx context.Context, label string, prior *feed.UserTopicRecord) Decision {
	if label == "" {
		return Unchanged()
	}
	if !prior.HasTopic() {
		return New(label)
	}
	score := n.judge.Score(ctx, label, prior.Topic)
	if score >= n.judge.Threshold() {
		d := Unchanged()
		d.Score = score
		return d
	}
	d := Changed(label)
	d.Score = score
	return d
}

// Current returns the user's record, or nil when the user has no live topic.
func (n *Normalizer) Current(ctx context.Context, userID string) (*feed.UserTopicRecord, error) {
	var rec feed.UserTopicRecord
	err := cache.GetJSON(ctx, n.store, cache.UserTopicKey(userID), &rec)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Apply decides and, on New or Changed, writes the user's record before any content
// exists so concurrent requests observe the new topic immediately. An Unchanged
// decision only renews the inactivity window. The returned record is nil when the
// user has no topic. A cache.ErrUnavailable error still carries a valid decision.
func (n *Normalizer) Apply(ctx context.Context, userID, language, label string) (Decision, *feed.UserTopicRecord, error) {
	prior, err := n.Current(ctx, userID)
	if err != nil {
		n.log.Warn("user topic read failed", "user_id", userID, "error", err)
	}
	d := n.Decide(ctx, label, prior)
	n.metrics.TopicDecision(string(d.Kind))

	key := cache.UserTopicKey(userID)
	if !d.TriggersGeneration() {
		if prior == nil {
			return d, nil, nil
		}
		rec, err := cache.UpdateJSON(ctx, n.store, key, n.ttl, func(cur *feed.UserTopicRecord) (*feed.UserTopicRecord, error) {
			if cur == nil {
				return nil, cache.ErrSkipUpdate
			}
			return cur, nil
		})
		switch {
		case errors.Is(err, cache.ErrMiss):
			return d, nil, nil
		case err != nil:
			return d, prior, fmt.Errorf("renew user topic: %w", err)
		}
		return d, rec, nil
	}

	now := n.now().UTC()
	rec, err := cache.UpdateJSON(ctx, n.store, key, n.ttl, func(cur *feed.UserTopicRecord) (*feed.UserTopicRecord, error) {
		next := &feed.UserTopicRecord{UserID: userID, Topic: d.Label, Language: language, Version: 1, UpdatedAt: now}
		if cur != nil {
			next.Version = cur.Version + 1
		}
		return next, nil
	})
	if err != nil {
		fallback := &feed.UserTopicRecord{UserID: userID, Topic: d.Label, Language: language, UpdatedAt: now}
		return d, fallback, fmt.Errorf("write user topic: %w", err)
	}
	n.log.Info("user topic updated", "user_id", userID, "decision", d.Kind, "topic", d.Label, "version", rec.Version)
	return d, rec, nil
}

// Reset forgets the user's topic so the next message is classified as New.
func (n *Normalizer) Reset(ctx context.Context, userID string) error {
	return n.store.Delete(ctx, cache.UserTopicKey(userID))
}
