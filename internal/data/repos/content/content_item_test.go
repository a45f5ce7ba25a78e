package content

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mindfeed-backend/internal/data/repos/testutil"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
)

func TestContentItemRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewContentItemRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	old := testutil.SeedContent(t, ctx, db, feed.ContentArticle, "en", "sleep", now.Add(-10*24*time.Hour))
	mid := testutil.SeedContent(t, ctx, db, feed.ContentArticle, "en", "sleep", now.Add(-time.Hour))
	testutil.SeedContent(t, ctx, db, feed.ContentArticle, "ru", "sleep", now)
	testutil.SeedContent(t, ctx, db, feed.ContentQuote, "en", "sleep", now)

	got, err := repo.ListActive(dbc, feed.ContentArticle, "en", "sleep", 10)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(got) != 2 || got[0].ID != mid.ID || got[1].ID != old.ID {
		t.Fatalf("ListActive: expected [mid old] newest first, got %d rows", len(got))
	}

	fresh := feed.NewContentItem(feed.ContentArticle, "sleep", "en")
	fresh.Title = "new"
	if _, err := repo.Create(dbc, []*feed.ContentItem{&fresh}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	n, err := repo.RetireSuperseded(dbc, feed.ContentArticle, "en", "sleep", []uuid.UUID{fresh.ID})
	if err != nil {
		t.Fatalf("RetireSuperseded: %v", err)
	}
	if n != 2 {
		t.Fatalf("RetireSuperseded: expected 2 rows, got %d", n)
	}
	got, err = repo.ListActive(dbc, feed.ContentArticle, "en", "sleep", 10)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(got) != 1 || got[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh row active, got %d rows", len(got))
	}
}

func TestContentItemRepoRetention(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewContentItemRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	testutil.SeedContent(t, ctx, db, feed.ContentQuote, "en", "work", now.Add(-8*24*time.Hour))
	seed := feed.NewContentItem(feed.ContentQuote, "", "en")
	seed.Approach = SeedApproach
	seed.CreatedAt = now.Add(-30 * 24 * time.Hour)
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	testutil.SeedContent(t, ctx, db, feed.ContentQuote, "en", "work", now)

	n, err := repo.RetireOlderThan(dbc, now.Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("RetireOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 retired row, got %d", n)
	}
	count, err := repo.CountActive(dbc, feed.ContentQuote, "en")
	if err != nil {
		t.Fatalf("CountActive: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected seed and fresh row to survive, got %d", count)
	}

	first, err := repo.NthActive(dbc, feed.ContentQuote, "en", 0)
	if err != nil || first == nil {
		t.Fatalf("NthActive(0): %v %v", first, err)
	}
	if first.ID != seed.ID {
		t.Fatalf("NthActive(0): expected oldest active row")
	}
	none, err := repo.NthActive(dbc, feed.ContentQuote, "en", 5)
	if err != nil || none != nil {
		t.Fatalf("NthActive(5): expected nil, got %v %v", none, err)
	}

	pool, err := repo.ListRandomActive(dbc, feed.ContentQuote, "en", 5)
	if err != nil {
		t.Fatalf("ListRandomActive: %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("ListRandomActive: expected 2 rows, got %d", len(pool))
	}
}

func TestTopicStatRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewTopicStatRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := repo.Increment(dbc, "sleep", "en", now); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}
	if err := repo.Increment(dbc, "work", "en", now); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	testutil.SeedTopicStat(t, ctx, db, "stale", "en", 50, now.Add(-30*24*time.Hour))
	testutil.SeedTopicStat(t, ctx, db, "сон", "ru", 2, now)

	top, err := repo.Top(dbc, "en", now.Add(-7*24*time.Hour), 10)
	if err != nil {
		t.Fatalf("Top: %v", err)
	}
	if len(top) != 2 || top[0].Topic != "sleep" || top[0].Frequency != 3 || top[1].Topic != "work" {
		t.Fatalf("Top: unexpected %+v", top)
	}

	langs, err := repo.Languages(dbc)
	if err != nil {
		t.Fatalf("Languages: %v", err)
	}
	if len(langs) != 2 || langs[0] != "en" || langs[1] != "ru" {
		t.Fatalf("Languages: unexpected %v", langs)
	}
}
