package generation

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"gorm.io/datatypes"

	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

type approach struct {
	name         string
	focusEN      string
	focusRU      string
	systemSuffix string
}

var approaches = []approach{
	{
		name:         "practical",
		focusEN:      "practical advice and exercises",
		focusRU:      "практические советы и упражнения",
		systemSuffix: "Write practical articles with concrete exercises and techniques.",
	},
	{
		name:         "theoretical",
		focusEN:      "theoretical foundations and understanding",
		focusRU:      "теоретические основы и понимание",
		systemSuffix: "Write educational articles that explain the psychological concepts involved.",
	},
	{
		name:         "motivational",
		focusEN:      "motivation and inspiration",
		focusRU:      "мотивация и вдохновение",
		systemSuffix: "Write inspiring articles with motivational advice.",
	},
}

type ArticleGenerator struct {
	llm      LLM
	perTopic int
	log      *logger.Logger
}

func NewArticleGenerator(log *logger.Logger, llm LLM, perTopic int) *ArticleGenerator {
	if perTopic < 1 {
		perTopic = 1
	}
	return &ArticleGenerator{llm: llm, perTopic: perTopic, log: log.With("service", "ArticleGenerator")}
}

func (g *ArticleGenerator) Type() feed.ContentType { return feed.ContentArticle }

// approachesFor rotates the starting approach by topic so single-article topics do
// not all read the same way.
func (g *ArticleGenerator) approachesFor(topic string) []approach {
	h := fnv.New32a()
	_, _ = h.Write([]byte(topic))
	start := int(h.Sum32() % uint32(len(approaches)))
	out := make([]approach, 0, g.perTopic)
	for i := 0; i < g.perTopic; i++ {
		out = append(out, approaches[(start+i)%len(approaches)])
	}
	return out
}

func (g *ArticleGenerator) Generate(ctx context.Context, topic, language string) ([]feed.ContentItem, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, invalidTopic(feed.ContentArticle)
	}
	if g.llm == nil {
		return nil, upstream(feed.ContentArticle, fmt.Errorf("no language model configured"))
	}
	var out []feed.ContentItem
	for _, a := range g.approachesFor(topic) {
		system, user := articlePrompt(topic, language, a)
		raw, err := g.llm.GenerateText(ctx, system, user)
		if err != nil {
			return nil, fromLLM(feed.ContentArticle, err)
		}
		title, body, ok := parseArticle(raw)
		if !ok {
			return nil, upstream(feed.ContentArticle, fmt.Errorf("malformed %s article response", a.name))
		}
		it := feed.NewContentItem(feed.ContentArticle, topic, language)
		it.Title = title
		it.Body = body
		it.Approach = a.name
		it.Payload = datatypes.JSON(fmt.Sprintf(`{"word_count":%d}`, len(strings.Fields(body))))
		out = append(out, it)
	}
	return out, nil
}

func (g *ArticleGenerator) Fallback(topic, language string) []feed.ContentItem {
	out := make([]feed.ContentItem, 0, g.perTopic)
	for _, a := range g.approachesFor(topic) {
		title, body := fallbackArticle(topic, language, a.name)
		it := feed.NewContentItem(feed.ContentArticle, topic, language)
		it.Title = title
		it.Body = body
		it.Approach = a.name
		it.IsFallback = true
		out = append(out, it)
	}
	return out
}

func articlePrompt(topic, language string, a approach) (string, string) {
	if language == "ru" {
		return "Ты эксперт по психологии и самопомощи. " + a.systemSuffix,
			fmt.Sprintf(`Создай статью на тему %q для приложения самопомощи.

Требования:
- Заголовок должен быть привлекательным и мотивирующим
- Длина: 300-500 слов
- Тон: дружелюбный, поддерживающий
- Фокус на: %s

Формат ответа:
ЗАГОЛОВОК: [заголовок статьи]
СОДЕРЖАНИЕ: [содержание статьи]`, topic, a.focusRU)
	}
	return "You are an expert in psychology and self-help. " + a.systemSuffix,
		fmt.Sprintf(`Create an article on the topic %q for a self-help application.

Requirements:
- Title should be attractive and motivating
- Length: 300-500 words
- Tone: friendly, supportive
- Focus on: %s

Response format:
TITLE: [article title]
CONTENT: [article content]`, topic, a.focusEN)
}

// parseArticle accepts both the English and Russian markers. Content continues over
// following lines until another marker.
func parseArticle(raw string) (string, string, bool) {
	var title string
	var body []string
	inBody := false
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := cutMarker(line, "TITLE:", "ЗАГОЛОВОК:"); ok {
			title = strings.Trim(rest, `"*# `)
			inBody = false
			continue
		}
		if rest, ok := cutMarker(line, "CONTENT:", "СОДЕРЖАНИЕ:"); ok {
			body = body[:0]
			if rest != "" {
				body = append(body, rest)
			}
			inBody = true
			continue
		}
		if inBody {
			body = append(body, line)
		}
	}
	content := strings.Join(body, "\n")
	if title == "" || strings.TrimSpace(content) == "" {
		return "", "", false
	}
	return title, content, true
}

func cutMarker(line string, markers ...string) (string, bool) {
	for _, m := range markers {
		if rest, ok := strings.CutPrefix(line, m); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}
