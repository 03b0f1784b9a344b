// internal/service/presenter.go
package service

import (
	"fmt"
	"strings"
	"time"

	"leave-status-bot/internal/models"
)

// EmojiRule maps leave type keywords to a Slack status shortcode and the
// glyph shown next to the type in the request form.
type EmojiRule struct {
	Keywords  []string
	Shortcode string
	Glyph     string
}

// EmojiRules is matched in order against the lowercased leave type name;
// the first rule with a matching keyword wins.
var EmojiRules = []EmojiRule{
	{Keywords: []string{"vacation", "annual", "holiday"}, Shortcode: ":palm_tree:", Glyph: "🌴"},
	{Keywords: []string{"sick"}, Shortcode: ":face_with_thermometer:", Glyph: "🤒"},
	{Keywords: []string{"personal", "unpaid"}, Shortcode: ":calendar:", Glyph: "📅"},
	{Keywords: []string{"maternity", "paternity"}, Shortcode: ":baby:", Glyph: "👶"},
	{Keywords: []string{"bereavement"}, Shortcode: ":broken_heart:", Glyph: "💔"},
}

var DefaultEmojiRule = EmojiRule{Shortcode: ":beach_with_umbrella:", Glyph: "🏖️"}

const defaultLeaveTypeName = "Time off"

// EmojiFor returns the first rule matching leaveTypeName.
func EmojiFor(leaveTypeName string) EmojiRule {
	name := strings.ToLower(leaveTypeName)
	for _, rule := range EmojiRules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(name, keyword) {
				return rule
			}
		}
	}
	return DefaultEmojiRule
}

// Presenter turns leave records into statuses. Expirations are computed in
// location so that they land on local midnight.
type Presenter struct {
	location *time.Location
}

func NewPresenter(location *time.Location) *Presenter {
	if location == nil {
		location = time.Local
	}
	return &Presenter{location: location}
}

// Present builds the status for record. The text names the return day
// (EndDate + 1) and the status expires at local midnight starting that day,
// so a missed pass still leaves no stale status behind.
func (p *Presenter) Present(record models.LeaveRecord) models.Presentation {
	name := strings.TrimSpace(record.LeaveTypeName)
	if name == "" {
		name = defaultLeaveTypeName
	}

	y, m, d := record.EndDate.Date()
	returnDay := time.Date(y, m, d+1, 0, 0, 0, 0, p.location)

	return models.Presentation{
		Emoji:      EmojiFor(name).Shortcode,
		Text:       fmt.Sprintf("%s till %s", name, returnDay.Format("Jan 2")),
		Expiration: returnDay.Unix(),
	}
}
