package generation

import (
	"context"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/observability"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

// LLM is the text-completion capability used by the article and quote generators.
type LLM interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

// Generator turns a topic into content items of one type. Generate must be safe to
// re-run: a retried unit overwrites, never appends.
type Generator interface {
	Type() feed.ContentType
	Generate(ctx context.Context, topic, language string) ([]feed.ContentItem, error)
	// Fallback returns deterministic content used when the provider is out of quota.
	Fallback(topic, language string) []feed.ContentItem
}

// Outcome is the policy-filtered result of one generator.
type Outcome struct {
	Type           feed.ContentType
	Items          []feed.ContentItem
	Missing        bool
	QuotaExhausted bool
	Err            error
}

// Policy applies the failure rules around a generator: upstream errors are retried
// once after Backoff, quota exhaustion yields fallback content, anything else leaves
// the type missing.
type Policy struct {
	Backoff time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
}

func NewPolicy(log *logger.Logger, backoff time.Duration, metrics *observability.Metrics) *Policy {
	return &Policy{Backoff: backoff, log: log.With("service", "GeneratorPolicy"), metrics: metrics}
}

func (p *Policy) Run(ctx context.Context, g Generator, topic, language string) Outcome {
	t := g.Type()
	items, err := g.Generate(ctx, topic, language)
	if err != nil && KindOf(err) == KindUpstream && ctx.Err() == nil {
		p.log.Warn("generator failed, retrying once", "type", t, "topic", topic, "error", err)
		if !sleepCtx(ctx, p.Backoff) {
			return p.missing(t, ctx.Err())
		}
		items, err = g.Generate(ctx, topic, language)
	}
	if err != nil {
		switch KindOf(err) {
		case KindQuotaExceeded:
			p.log.Warn("generator quota exhausted, serving fallback", "type", t, "topic", topic)
			p.metrics.GeneratorRun(string(t), "fallback")
			return Outcome{Type: t, Items: g.Fallback(topic, language), QuotaExhausted: true, Err: err}
		default:
			p.log.Warn("generator gave up", "type", t, "topic", topic, "error", err)
			return p.missing(t, err)
		}
	}
	if len(items) == 0 {
		return p.missing(t, nil)
	}
	p.metrics.GeneratorRun(string(t), "ok")
	return Outcome{Type: t, Items: items}
}

func (p *Policy) missing(t feed.ContentType, err error) Outcome {
	p.metrics.GeneratorRun(string(t), "missing")
	return Outcome{Type: t, Missing: true, Err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
