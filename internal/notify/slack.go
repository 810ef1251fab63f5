// Package notify delivers escalation notifications to operators.
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"github.com/dragonwatch/dragonwatch/internal/database"
)

// SlackNotifier posts threat level escalations to a Slack channel. It is
// fire-and-forget: notification failures are logged, never propagated back
// into the correlation pass.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier. Returns nil when the token or channel
// is unset, so callers can treat an unconfigured notifier as disabled.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	if token == "" || channel == "" {
		return nil
	}
	return &SlackNotifier{
		client:  slack.New(token),
		channel: channel,
	}
}

// NotifyEscalation posts a message when a region's visible threat level rises
func (n *SlackNotifier) NotifyEscalation(alert *database.Alert, from, to database.ThreatLevel) {
	text := fmt.Sprintf("%s *%s* escalated %s → %s (score %.1f, confidence %.0f%%)\n%s",
		levelEmoji(to), alert.Region, from, to, alert.ThreatScore, alert.Confidence*100,
		evidenceSummary(alert))

	_, _, err := n.client.PostMessage(n.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		log.Printf("Warning: failed to post escalation to Slack: %v", err)
		return
	}
	log.Printf("Posted escalation notification for %s to %s", alert.Region, n.channel)
}

func evidenceSummary(alert *database.Alert) string {
	if alert.CorrelationMetadata == nil {
		return ""
	}
	if summary, ok := alert.CorrelationMetadata["evidence_summary"].(string); ok {
		return summary
	}
	return ""
}

func levelEmoji(level database.ThreatLevel) string {
	switch level {
	case database.ThreatLevelRed:
		return ":red_circle:"
	case database.ThreatLevelAmber:
		return ":large_orange_circle:"
	default:
		return ":large_green_circle:"
	}
}
