package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

func TestPolicyRetriesUpstreamOnce(t *testing.T) {
	p := NewPolicy(logger.NewNop(), time.Millisecond, nil)
	g := &fakeGen{t: feed.ContentQuote, errs: []error{upstream(feed.ContentQuote, errors.New("502"))}}

	out := p.Run(context.Background(), g, "sleep", "en")
	assert.False(t, out.Missing)
	assert.Len(t, out.Items, 1)
	assert.EqualValues(t, 2, g.calls.Load())
}

func TestPolicyGivesUpAfterSecondFailure(t *testing.T) {
	p := NewPolicy(logger.NewNop(), time.Millisecond, nil)
	g := failing(feed.ContentArticle, upstream(feed.ContentArticle, errors.New("timeout")))

	out := p.Run(context.Background(), g, "sleep", "en")
	assert.True(t, out.Missing)
	assert.Empty(t, out.Items)
	assert.EqualValues(t, 2, g.calls.Load())
	assert.Equal(t, KindUpstream, KindOf(out.Err))
}

func TestPolicyQuotaServesFallback(t *testing.T) {
	p := NewPolicy(logger.NewNop(), time.Millisecond, nil)
	g := failing(feed.ContentVideo, quotaExceeded(feed.ContentVideo, errors.New("quota")))

	out := p.Run(context.Background(), g, "sleep", "en")
	assert.False(t, out.Missing)
	assert.True(t, out.QuotaExhausted)
	require.Len(t, out.Items, 1)
	assert.True(t, out.Items[0].IsFallback)
	assert.EqualValues(t, 1, g.calls.Load(), "quota errors are not retried")
}

func TestPolicyInvalidTopicIsMissing(t *testing.T) {
	p := NewPolicy(logger.NewNop(), time.Millisecond, nil)
	out := p.Run(context.Background(), NewQuoteGenerator(logger.NewNop(), &fakeLLM{}), "  ", "en")
	assert.True(t, out.Missing)
	assert.Equal(t, KindInvalidTopic, KindOf(out.Err))
	assert.ErrorIs(t, out.Err, ErrInvalidTopic)
}

func TestPolicyStopsOnCancelledContext(t *testing.T) {
	p := NewPolicy(logger.NewNop(), time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	g := failing(feed.ContentQuote, upstream(feed.ContentQuote, errors.New("502")))
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	out := p.Run(ctx, g, "sleep", "en")
	assert.True(t, out.Missing)
	assert.EqualValues(t, 1, g.calls.Load())
}

func TestKindOfUntypedErrorIsUpstream(t *testing.T) {
	assert.Equal(t, KindUpstream, KindOf(errors.New("boom")))
	assert.Equal(t, KindQuotaExceeded, KindOf(quotaExceeded(feed.ContentVideo, nil)))
}

func TestFromLLMClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"bad request", &goopenai.APIError{HTTPStatusCode: 400, Message: "bad"}, KindInvalidTopic},
		{"rate limited", &goopenai.APIError{HTTPStatusCode: 429}, KindUpstream},
		{"server error", &goopenai.APIError{HTTPStatusCode: 503}, KindUpstream},
		{"quota", &goopenai.APIError{HTTPStatusCode: 429, Type: "insufficient_quota"}, KindQuotaExceeded},
		{"transport", errors.New("connection reset"), KindUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(fromLLM(feed.ContentArticle, tc.err)))
		})
	}
}

func TestPolicyDoesNotRetryRejectedRequest(t *testing.T) {
	llm := &fakeLLM{err: &goopenai.APIError{HTTPStatusCode: 400, Message: "bad request"}}
	p := NewPolicy(logger.NewNop(), time.Millisecond, nil)

	out := p.Run(context.Background(), NewQuoteGenerator(logger.NewNop(), llm), "sleep", "en")
	assert.True(t, out.Missing)
	assert.Len(t, llm.prompts, 1)
}
