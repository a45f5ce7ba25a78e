package generation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

func TestParseArticle(t *testing.T) {
	title, body, ok := parseArticle("TITLE: **Better Sleep**\nCONTENT: First line.\n\nSecond line.")
	require.True(t, ok)
	assert.Equal(t, "Better Sleep", title)
	assert.Equal(t, "First line.\nSecond line.", body)

	title, body, ok = parseArticle("ЗАГОЛОВОК: Сон\nСОДЕРЖАНИЕ:\nСпите больше.")
	require.True(t, ok)
	assert.Equal(t, "Сон", title)
	assert.Equal(t, "Спите больше.", body)

	_, _, ok = parseArticle("just some prose without markers")
	assert.False(t, ok)
}

func TestParseQuote(t *testing.T) {
	text, author, ok := parseQuote("QUOTE: \"Rest is productive.\"\nAUTHOR: Anonymous")
	require.True(t, ok)
	assert.Equal(t, "Rest is productive.", text)
	assert.Equal(t, "Anonymous", author)

	text, author, ok = parseQuote("ЦИТАТА: «Отдых тоже работа»")
	require.True(t, ok)
	assert.Equal(t, "Отдых тоже работа", text)
	assert.Equal(t, "Unknown", author)

	_, _, ok = parseQuote("AUTHOR: nobody")
	assert.False(t, ok)
}

func TestArticleGenerator(t *testing.T) {
	llm := &fakeLLM{reply: "TITLE: Calm Mornings\nCONTENT: Breathe slowly for five minutes."}
	g := NewArticleGenerator(logger.NewNop(), llm, 2)

	items, err := g.Generate(context.Background(), "morning anxiety", "en")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.NotEqual(t, items[0].Approach, items[1].Approach)
	assert.Equal(t, "Calm Mornings", items[0].Title)
	assert.JSONEq(t, `{"word_count":5}`, string(items[0].Payload))
	assert.Len(t, llm.prompts, 2)

	llm.reply = "garbage"
	_, err = g.Generate(context.Background(), "morning anxiety", "en")
	assert.Equal(t, KindUpstream, KindOf(err))

	fb := g.Fallback("morning anxiety", "ru")
	require.Len(t, fb, 2)
	assert.True(t, fb[0].IsFallback)
	assert.NotEmpty(t, fb[0].Body)
}

func TestArticleRotationIsStablePerTopic(t *testing.T) {
	g := NewArticleGenerator(logger.NewNop(), nil, 1)
	first := g.approachesFor("sleep")[0].name
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, g.approachesFor("sleep")[0].name)
	}
}

func TestQuoteGenerator(t *testing.T) {
	g := NewQuoteGenerator(logger.NewNop(), &fakeLLM{reply: "QUOTE: Small steps count.\nAUTHOR: Unknown"})
	items, err := g.Generate(context.Background(), "habits", "en")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, feed.ContentQuote, items[0].Type)
	assert.Equal(t, "Small steps count.", items[0].Body)

	g = NewQuoteGenerator(logger.NewNop(), &fakeLLM{err: errors.New("connection reset")})
	_, err = g.Generate(context.Background(), "habits", "en")
	assert.Equal(t, KindUpstream, KindOf(err))

	fb := g.Fallback("habits", "ru")
	require.Len(t, fb, 1)
	assert.Equal(t, "Махатма Ганди", fb[0].Author)
}

func TestFormatDuration(t *testing.T) {
	cases := map[string]string{
		"PT8M30S":  "8:30",
		"PT1H2M5S": "1:02:05",
		"PT45S":    "0:45",
		"PT10M":    "10:00",
		"P1D":      "",
		"":         "",
		"PTXM":     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatDuration(in), in)
	}
}

func TestEnhanceQuery(t *testing.T) {
	assert.Equal(t, "knitting self help psychology", EnhanceQuery("knitting", "en"))
	assert.Equal(t, "вязание самопомощь психология", EnhanceQuery("вязание", "ru"))
	assert.Equal(t, "how to improve sleep sleep techniques self help psychology", EnhanceQuery("  Sleep ", "en"))
}

func TestVideoPayload(t *testing.T) {
	items := videoItems("sleep", "en", fallbackVideoList("en")[:1], true)
	require.Len(t, items, 1)
	var p videoPayload
	require.NoError(t, json.Unmarshal(items[0].Payload, &p))
	assert.Equal(t, "inpok4MKVLM", p.VideoID)
	assert.Equal(t, "5:00", p.DurationDisplay)
	assert.Contains(t, items[0].URL, "inpok4MKVLM")
}
