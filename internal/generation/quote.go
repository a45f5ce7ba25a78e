package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type QuoteGenerator struct {
	llm LLM
	log *logger.Logger
}

func NewQuoteGenerator(log *logger.Logger, llm LLM) *QuoteGenerator {
	return &QuoteGenerator{llm: llm, log: log.With("service", "QuoteGenerator")}
}

func (g *QuoteGenerator) Type() feed.ContentType { return feed.ContentQuote }

func (g *QuoteGenerator) Generate(ctx context.Context, topic, language string) ([]feed.ContentItem, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, invalidTopic(feed.ContentQuote)
	}
	if g.llm == nil {
		return nil, upstream(feed.ContentQuote, fmt.Errorf("no language model configured"))
	}
	system, user := quotePrompt(topic, language)
	raw, err := g.llm.GenerateText(ctx, system, user)
	if err != nil {
		return nil, fromLLM(feed.ContentQuote, err)
	}
	text, author, ok := parseQuote(raw)
	if !ok {
		return nil, upstream(feed.ContentQuote, fmt.Errorf("malformed quote response"))
	}
	it := feed.NewContentItem(feed.ContentQuote, topic, language)
	it.Body = text
	it.Author = author
	return []feed.ContentItem{it}, nil
}

func (g *QuoteGenerator) Fallback(topic, language string) []feed.ContentItem {
	q := fallbackQuote(language)
	it := feed.NewContentItem(feed.ContentQuote, topic, language)
	it.Body = q.text
	it.Author = q.author
	it.IsFallback = true
	return []feed.ContentItem{it}
}

func quotePrompt(topic, language string) (string, string) {
	if language == "ru" {
		return "Ты автор вдохновляющих цитат для приложения самопомощи.",
			fmt.Sprintf(`Создай мотивирующую цитату на тему %q.

Требования:
- Короткая и запоминающаяся (1-2 предложения)
- Подбери подходящего автора (известного или неизвестного)
- Тон: позитивный, поддерживающий

Формат ответа:
ЦИТАТА: [текст цитаты]
АВТОР: [автор]`, topic)
	}
	return "You write inspiring quotes for a self-help application.",
		fmt.Sprintf(`Create a motivational quote on the topic %q.

Requirements:
- Short and memorable (1-2 sentences)
- Come up with a suitable author (famous or unknown)
- Tone: positive, supportive

Response format:
QUOTE: [quote text]
AUTHOR: [author]`, topic)
}

func parseQuote(raw string) (string, string, bool) {
	var text, author string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := cutMarker(line, "QUOTE:", "ЦИТАТА:"); ok {
			text = strings.Trim(rest, `"«»“” `)
		} else if rest, ok := cutMarker(line, "AUTHOR:", "АВТОР:"); ok {
			author = strings.Trim(rest, `"«»“”- `)
		}
	}
	if text == "" {
		return "", "", false
	}
	if author == "" {
		author = "Unknown"
	}
	return text, author, true
}
