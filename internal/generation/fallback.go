package generation

import (
	"fmt"

	"github.com/yungbote/mindfeed-backend/internal/platform/youtube"
)

func fallbackArticle(topic, language, approachName string) (string, string) {
	if language == "ru" {
		switch approachName {
		case "theoretical":
			return fmt.Sprintf("Понимание темы «%s»: комплексный обзор", topic),
				fmt.Sprintf("«%s» затрагивает многие стороны нашей жизни. Понимание основных механизмов помогает лучше справляться с трудностями и принимать взвешенные решения о своём благополучии.", topic)
		case "motivational":
			return fmt.Sprintf("Найти силу: %s как путь к росту", topic),
				fmt.Sprintf("Каждая трудность, связанная с темой «%s», это возможность для личностного роста. У вас есть внутренняя сила, чтобы справиться, и вы не одиноки на этом пути.", topic)
		default:
			return fmt.Sprintf("Практическое руководство: %s", topic),
				fmt.Sprintf("Начните с того, что определите, какие стороны темы «%s» влияют на вас сильнее всего. Составьте простой план из небольших выполнимых шагов и отмечайте каждое улучшение.", topic)
		}
	}
	switch approachName {
	case "theoretical":
		return fmt.Sprintf("Understanding %s: A Comprehensive Overview", topic),
			fmt.Sprintf("%s touches many parts of our lives. Understanding the mechanisms behind it gives you a foundation for effective coping strategies and informed decisions about your well-being.", topic)
	case "motivational":
		return fmt.Sprintf("Finding Strength in %s: Your Journey to Growth", topic),
			fmt.Sprintf("Every challenge related to %s is an opportunity for growth. You have the inner strength to overcome difficulties, and you are not alone in facing them.", topic)
	default:
		return fmt.Sprintf("Practical Guide to %s: Simple Steps for Improvement", topic),
			fmt.Sprintf("Start by identifying the aspects of %s that affect you most. Then create a simple action plan with small, manageable steps, and celebrate every improvement along the way.", topic)
	}
}

type fallbackQuoteText struct {
	text, author string
}

var fallbackQuotes = map[string]fallbackQuoteText{
	"en": {"Be the change you wish to see in the world", "Mahatma Gandhi"},
	"ru": {"Будь изменением, которое ты хочешь видеть в мире", "Махатма Ганди"},
}

func fallbackQuote(language string) fallbackQuoteText {
	if q, ok := fallbackQuotes[language]; ok {
		return q
	}
	return fallbackQuotes["en"]
}

var fallbackVideos = map[string][]youtube.Video{
	"en": {
		{ID: "inpok4MKVLM", Title: "5-Minute Meditation You Can Do Anywhere", Channel: "Goodful", Duration: "PT5M"},
		{ID: "SEfs5TJZ6Nk", Title: "Breathing Exercise for Stress Relief", Channel: "Self Help Psychology", Duration: "PT6M30S"},
		{ID: "WWloIAQpMcQ", Title: "How to Build Better Habits", Channel: "Self Help Psychology", Duration: "PT9M12S"},
	},
	"ru": {
		{ID: "c1Ndym-IsQg", Title: "Медитация на 10 минут для начинающих", Channel: "Самопомощь", Duration: "PT10M"},
		{ID: "aXItOY0sLRY", Title: "Дыхательная техника для снятия стресса", Channel: "Самопомощь", Duration: "PT7M"},
		{ID: "tEmt1Znux58", Title: "Как справиться с тревогой", Channel: "Психология", Duration: "PT8M30S"},
	},
}

func fallbackVideoList(language string) []youtube.Video {
	if v, ok := fallbackVideos[language]; ok {
		return v
	}
	return fallbackVideos["en"]
}

var queryExpansions = map[string]string{
	"стресс":     "как справиться со стрессом техники релаксации",
	"тревога":    "как избавиться от тревоги техники успокоения",
	"депрессия":  "как бороться с депрессией самопомощь",
	"медитация":  "медитация для начинающих техники медитации",
	"сон":        "как улучшить сон техники засыпания",
	"мотивация":  "мотивация самосовершенствование личностный рост",
	"stress":     "how to deal with stress relaxation techniques",
	"anxiety":    "how to overcome anxiety calming techniques",
	"depression": "how to fight depression self help",
	"meditation": "meditation for beginners meditation techniques",
	"sleep":      "how to improve sleep sleep techniques",
	"motivation": "motivation self improvement personal growth",
}
