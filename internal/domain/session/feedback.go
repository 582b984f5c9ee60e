package session

import (
	"fmt"
	"math"
)

// Feedback - короткий отзыв о сессии для показа пользователю.
type Feedback struct {
	Headline string
	Message  string
	Emoji    string

	// Hint подсказывает, чего не хватило до следующего уровня качества.
	Hint string
}

var feedbackByQuality = map[Quality]Feedback{
	QualityExcellent: {
		Headline: "Excellent focus",
		Message:  "A long, almost uninterrupted break from the screen.",
		Emoji:    "🌟",
	},
	QualityGreat: {
		Headline: "Great session",
		Message:  "Solid time away with only small interruptions.",
		Emoji:    "💪",
	},
	QualityGood: {
		Headline: "Good session",
		Message:  "A decent break. Try keeping the phone out of reach.",
		Emoji:    "👍",
	},
	QualityFair: {
		Headline: "Fair session",
		Message:  "You stepped away, but the screen kept pulling you back.",
		Emoji:    "🙂",
	},
	QualityNeedsImprovement: {
		Headline: "Keep practicing",
		Message:  "Short or frequently interrupted. Every minute offline still counts.",
		Emoji:    "🌱",
	},
}

// FeedbackFor строит отзыв по итогам сессии.
func FeedbackFor(s Summary) Feedback {
	fb, ok := feedbackByQuality[s.Quality]
	if !ok {
		fb = feedbackByQuality[QualityNeedsImprovement]
	}

	next, minFocus, minMinutes, ok := NextTier(s.Quality)
	if !ok {
		return fb
	}

	minutes := s.Duration.Minutes()
	switch {
	case minutes < minMinutes && s.FocusRatio < minFocus:
		fb.Hint = fmt.Sprintf("Reach %s with %.0f+ minutes and %d%% focus.",
			next, minMinutes, int(math.Round(minFocus*100)))
	case minutes < minMinutes:
		fb.Hint = fmt.Sprintf("%.0f more minutes would have made it %s.",
			math.Ceil(minMinutes-minutes), next)
	case s.FocusRatio < minFocus:
		fb.Hint = fmt.Sprintf("Keep the app in front %d%% of the time to reach %s.",
			int(math.Round(minFocus*100)), next)
	}
	return fb
}
