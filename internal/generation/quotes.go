package generation

import (
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/mindfeed-backend/internal/data/repos"
	"github.com/yungbote/mindfeed-backend/internal/data/repos/content"
	"github.com/yungbote/mindfeed-backend/internal/domain/feed"
	"github.com/yungbote/mindfeed-backend/internal/pkg/dbctx"
	"github.com/yungbote/mindfeed-backend/internal/platform/logger"
)

var ErrNoQuotes = errors.New("generation: no active quotes")

type seedQuote struct {
	text, author, topic string
}

var seedQuotes = map[string][]seedQuote{
	"en": {
		{"Be the change you wish to see in the world", "Mahatma Gandhi", "motivation"},
		{"Every day is a new opportunity to become better", "Unknown", "motivation"},
		{"Happiness is not in always doing what you want, but in always wanting what you do", "Leo Tolstoy", "happiness"},
		{"The most important thing is not what happens to us, but how we react to it", "Epictetus", "relationships"},
		{"Success is the ability to go from one failure to another with no loss of enthusiasm", "Winston Churchill", "success"},
		{"The best way to predict the future is to create it", "Peter Drucker", "future"},
		{"You cannot control everything that happens to you, but you can control your reaction", "Unknown", "control"},
		{"Every experience, even negative, makes you stronger", "Unknown", "experience"},
		{"Belief in yourself is the first step to success", "Unknown", "belief"},
		{"Patience is not the ability to wait, but the ability to keep a good attitude while waiting", "Unknown", "patience"},
	},
	"ru": {
		{"Будь изменением, которое ты хочешь видеть в мире", "Махатма Ганди", "мотивация"},
		{"Каждый день - это новая возможность стать лучше", "Неизвестный", "мотивация"},
		{"Счастье не в том, чтобы делать всегда, что хочешь, а в том, чтобы всегда хотеть того, что делаешь", "Лев Толстой", "счастье"},
		{"Самое важное - это не то, что с нами происходит, а то, как мы на это реагируем", "Эпиктет", "отношения"},
		{"Успех - это способность шагать от одной неудачи к другой, не теряя энтузиазма", "Уинстон Черчилль", "успех"},
		{"Лучший способ предсказать будущее - создать его", "Питер Друкер", "будущее"},
		{"Ты не можешь контролировать все, что происходит с тобой, но ты можешь контролировать свою реакцию", "Неизвестный", "контроль"},
		{"Каждый опыт, даже негативный, делает тебя сильнее", "Неизвестный", "опыт"},
		{"Вера в себя - это первый шаг к успеху", "Неизвестный", "вера"},
		{"Терпение - это не способность ждать, а способность сохранять хорошее настроение во время ожидания", "Неизвестный", "терпение"},
	},
}

// SeedQuotes inserts the built-in quotes for every language that has no active quote
// yet and reports how many rows were written.
func SeedQuotes(dbc dbctx.Context, items repos.ContentItemRepo, log *logger.Logger) (int, error) {
	total := 0
	for lang, quotes := range seedQuotes {
		n, err := items.CountActive(dbc, feed.ContentQuote, lang)
		if err != nil {
			return total, fmt.Errorf("count %s quotes: %w", lang, err)
		}
		if n > 0 {
			continue
		}
		rows := make([]*feed.ContentItem, 0, len(quotes))
		for _, q := range quotes {
			it := feed.NewContentItem(feed.ContentQuote, q.topic, lang)
			it.Body = q.text
			it.Author = q.author
			it.Approach = content.SeedApproach
			rows = append(rows, &it)
		}
		if _, err := items.Create(dbc, rows); err != nil {
			return total, fmt.Errorf("seed %s quotes: %w", lang, err)
		}
		total += len(rows)
		log.Info("seeded default quotes", "language", lang, "count", len(rows))
	}
	return total, nil
}

// QuoteOfTheDay picks the active quote at index day-of-year mod count, so every
// process agrees on the same quote for a given day.
func QuoteOfTheDay(dbc dbctx.Context, items repos.ContentItemRepo, language string, day time.Time) (*feed.ContentItem, error) {
	n, err := items.CountActive(dbc, feed.ContentQuote, language)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoQuotes
	}
	q, err := items.NthActive(dbc, feed.ContentQuote, language, day.YearDay()%int(n))
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrNoQuotes
	}
	return q, nil
}

// DayStamp formats day as used in daily quote keys.
func DayStamp(day time.Time) string { return day.UTC().Format("20060102") }
