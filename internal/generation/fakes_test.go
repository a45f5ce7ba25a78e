package generation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/cache"
	"github.com/yungbote/mindfeed-backend/internal/data/repos"
	"github.com/yungbote/mindfeed-backend/internal/data/repos/testutil"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/jobs"
	"github.com/yungbote/mindfeed-backend/internal/jobs/runtime"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
	"github.com/yungbote/mindfeed-backend/internal/platform/youtube"
	"github.com/yungbote/mindfeed-backend/internal/tasks"
)

// fakeGen returns errs in order, then items for every later call.
type fakeGen struct {
	t     feed.ContentType
	errs  []error
	calls atomic.Int32
	delay time.Duration
}

func (g *fakeGen) Type() feed.ContentType { return g.t }

func (g *fakeGen) Generate(ctx context.Context, topic, language string) ([]feed.ContentItem, error) {
	n := int(g.calls.Add(1))
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, upstream(g.t, ctx.Err())
		}
	}
	if n <= len(g.errs) {
		return nil, g.errs[n-1]
	}
	it := feed.NewContentItem(g.t, topic, language)
	it.Title = string(g.t) + " about " + topic
	return []feed.ContentItem{it}, nil
}

func (g *fakeGen) Fallback(topic, language string) []feed.ContentItem {
	it := feed.NewContentItem(g.t, topic, language)
	it.IsFallback = true
	return []feed.ContentItem{it}
}

func failing(t feed.ContentType, err error) *fakeGen {
	return &fakeGen{t: t, errs: []error{err, err, err}}
}

type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeLLM) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, user)
	return f.reply, f.err
}

type fakeYouTube struct {
	videos []youtube.Video
	err    error
	calls  atomic.Int32
	query  string
}

func (f *fakeYouTube) Search(ctx context.Context, query string, opts youtube.SearchOptions) ([]youtube.Video, error) {
	f.calls.Add(1)
	f.query = query
	return f.videos, f.err
}

// downStore fails every lock call the way Resilient reports an unreachable backend.
type downStore struct {
	cache.Store
}

func (downStore) TryAcquireLock(context.Context, string, string, time.Duration) (bool, string, error) {
	return false, "", cache.ErrUnavailable
}

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, *runtime.Job) error { return errors.New("queue down") }

func (failingQueue) Dequeue(context.Context, time.Duration) (*runtime.Job, error) {
	return nil, jobs.ErrEmpty
}

func (failingQueue) Len(context.Context) (int64, error) { return 0, nil }

type harness struct {
	store   cache.Store
	tracker *tasks.Tracker
	queue   *jobs.MemoryQueue
	items   repos.ContentItemRepo
	stats   repos.TopicStatRepo
	coord   *Coordinator
	log     *logger.Logger
}

func newHarness(t *testing.T, store cache.Store, gens ...Generator) *harness {
	t.Helper()
	log := logger.NewNop()
	gdb := testutil.DB(t)
	h := &harness{
		store: store,
		queue: jobs.NewMemoryQueue(64),
		items: repos.NewContentItemRepo(gdb, log),
		stats: repos.NewTopicStatRepo(gdb, log),
		log:   log,
	}
	h.tracker = tasks.NewTracker(log, store, time.Hour, 3*time.Minute)
	h.coord = NewCoordinator(log, store, h.tracker, h.queue, h.items, h.stats,
		NewPolicy(log, time.Millisecond, nil), gens,
		CoordinatorConfig{Lease: 2 * time.Minute, ContentTTL: time.Hour}, nil)
	return h
}

func allFake() []Generator {
	return []Generator{
		&fakeGen{t: feed.ContentArticle},
		&fakeGen{t: feed.ContentQuote},
		&fakeGen{t: feed.ContentVideo},
	}
}
