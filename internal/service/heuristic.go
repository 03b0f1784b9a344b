// internal/service/heuristic.go
package service

import (
	"strings"

	"leave-status-bot/internal/models"
)

// AuthorshipCheck decides whether a status may have been set by a previous
// pass and is therefore a candidate for clearing. Candidates are still
// confirmed against a fresh leave query before anything is cleared.
type AuthorshipCheck interface {
	MaybeOurs(status models.Status) bool
}

// leaveKeywords are matched case-insensitively against status text.
var leaveKeywords = []string{
	"vacation",
	"sick",
	"leave",
	"time off",
	"holiday",
	"personal",
	"maternity",
	"paternity",
	"till",
}

// KeywordHeuristic treats a status as leave-related when its text contains a
// leave keyword or any emoji is set.
type KeywordHeuristic struct{}

func (KeywordHeuristic) MaybeOurs(status models.Status) bool {
	if status.Emoji != "" {
		return true
	}
	text := strings.ToLower(status.Text)
	for _, keyword := range leaveKeywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
