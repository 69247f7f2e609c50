package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackSink forwards targeted notifications to a Slack channel. History-only
// events are skipped.
type SlackSink struct {
	API     *slack.Client
	Channel string
	// Names resolves user ids to display names for the message text.
	Names func(ctx context.Context, ids []string) []string
}

func NewSlackSink(token, channel string, names func(ctx context.Context, ids []string) []string) *SlackSink {
	return &SlackSink{API: slack.New(token), Channel: channel, Names: names}
}

func (s *SlackSink) Post(ctx context.Context, ev Event) error {
	if !ev.Targeted() || s.Channel == "" {
		return nil
	}
	to := ev.Recipients
	if s.Names != nil {
		to = s.Names(ctx, ev.Recipients)
	}
	text := fmt.Sprintf("*%s*\n%s\n_to: %v_", ev.Subject, ev.Body, to)
	if _, _, err := s.API.PostMessageContext(ctx, s.Channel, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}
