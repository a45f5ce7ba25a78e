package topic

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

const maxLabelRunes = 30

// LLM is the text-completion capability the extractor calls.
type LLM interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

var labelMarkers = []string{"TOPIC:", "Topic:", "topic:", "ТЕМА:", "Тема:", "тема:"}

var sentinelLabels = map[string]struct{}{
	"none": {}, "unknown": {}, "n/a": {}, "na": {}, "null": {},
	"нет": {}, "неизвестно": {}, "н/д": {},
}

type Extractor struct {
	llm     LLM
	timeout time.Duration
	log     *logger.Logger
}

func NewExtractor(log *logger.Logger, llm LLM, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Extractor{llm: llm, timeout: timeout, log: log.With("service", "TopicExtractor")}
}

// Extract derives a short topic label from a message. ok=false means no identifiable
// subject, which includes timeouts and malformed output.
func (e *Extractor) Extract(ctx context.Context, text, mode, language string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" || e.llm == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	system, user := extractionPrompt(text, mode, language)
	raw, err := e.llm.GenerateText(ctx, system, user)
	if err != nil {
		e.log.Warn("topic extraction failed", "error", err, "language", language)
		return "", false
	}
	label, ok := ParseLabel(raw)
	if !ok {
		e.log.Debug("topic extraction returned no label", "raw_len", len(raw))
	}
	return label, ok
}

// ParseLabel reads a TOPIC:/ТЕМА: response. Quotes and trailing punctuation are
// stripped and the label is clipped to 30 runes.
func ParseLabel(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	for _, marker := range labelMarkers {
		if i := strings.Index(s, marker); i >= 0 {
			s = s[i+len(marker):]
			break
		}
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(strings.TrimSpace(s), "\"'`«»“”.!;,[]")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxLabelRunes {
		s = strings.TrimSpace(string([]rune(s)[:maxLabelRunes]))
	}
	if s == "" {
		return "", false
	}
	if _, sentinel := sentinelLabels[Fold(s)]; sentinel {
		return "", false
	}
	return s, true
}

func extractionPrompt(text, mode, language string) (string, string) {
	if language == "ru" {
		system := "Ты эксперт по анализу психологических тем. Определяй точные и релевантные темы."
		user := fmt.Sprintf(`Проанализируй сообщение пользователя и определи ОДНУ основную тему.
Режим беседы: %s
Сообщение: %q

Требования:
- Верни только ОДНО слово или короткую фразу (2-3 слова максимум)
- Если темы нет, верни "нет"

Формат ответа:
ТЕМА: [тема]`, modeOrDefault(mode), text)
		return system, user
	}
	system := "You are an expert at analyzing psychological topics. Identify precise and relevant topics."
	user := fmt.Sprintf(`Analyze the user's message and identify ONE main topic.
Conversation mode: %s
Message: %q

Requirements:
- Return only ONE word or a short phrase (2-3 words maximum)
- Example topics: stress, anxiety, motivation, confidence, relationships, career, sleep
- If there is no identifiable subject, return "none"

Response format:
TOPIC: [topic]`, modeOrDefault(mode), text)
	return system, user
}

func modeOrDefault(mode string) string {
	if strings.TrimSpace(mode) == "" {
		return "general"
	}
	return mode
}
