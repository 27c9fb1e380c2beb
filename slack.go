package main

import (
	"fmt"

	"github.com/slack-go/slack"
)

// NotifySlack posts a batch verification summary to the configured channel.
// No-op when Slack isn't configured.
func NotifySlack(cfg Config, outcome *VerificationOutcome, reportPath string) error {
	if !cfg.SlackConfigured() {
		return nil
	}

	s := outcome.Summary
	text := fmt.Sprintf(
		"Ticket verification finished: %d sent, %d found, %d passed, %d failed (%.1f%% pass rate).",
		s.Total, s.Found, s.Passed, s.Failed, s.PassRate,
	)
	if reportPath != "" {
		text += fmt.Sprintf("\nReport: %s", reportPath)
	}

	api := slack.New(cfg.SlackBotToken)
	_, _, err := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting verification summary: %w", err)
	}
	return nil
}
