package debate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/openagora/agora/internal/domain"
)

// TerminationStrategy decides whether the debate should stop after a turn.
type TerminationStrategy interface {
	ShouldTerminate(history []domain.Message, iteration int) bool
}

// completionKeywords signal that an agent considers the exchange finished.
var completionKeywords = []string{
	"approved",
	"solution complete",
	"final answer",
	"complete solution provided",
	"ready to submit",
	"task completed",
}

var scorePattern = regexp.MustCompile(`(?i)\bscore\b\s*[:=]?\s*(\d+(?:\.\d+)?)`)

// CriticApproval terminates when a critic scores the answer at or above the
// threshold, when recent messages carry completion language, or when the
// iteration cap is reached.
type CriticApproval struct {
	MaxIterations  int
	ScoreThreshold float64
}

// ShouldTerminate implements TerminationStrategy.
func (c *CriticApproval) ShouldTerminate(history []domain.Message, iteration int) bool {
	if c.MaxIterations > 0 && iteration >= c.MaxIterations {
		return true
	}

	if len(history) < 2 {
		return false
	}

	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}

	for _, msg := range recent {
		content := strings.ToLower(msg.Content)
		fromCritic := strings.Contains(strings.ToLower(msg.Name), "critic")

		if fromCritic {
			if score, ok := extractScore(msg.Content); ok && score >= c.ScoreThreshold {
				return true
			}
		}

		for _, keyword := range completionKeywords {
			if strings.Contains(content, keyword) {
				return true
			}
		}
	}

	return false
}

// extractScore pulls a numeric "score: N" out of a critic message.
func extractScore(content string) (float64, bool) {
	m := scorePattern.FindStringSubmatch(content)
	if m == nil {
		return 0, false
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return score, true
}
