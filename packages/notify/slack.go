package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
)

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	client     *ihttp.Client
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackUsername sets the Slack bot username
func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

// WithSlackClient sets the HTTP client used to call the webhook
func WithSlackClient(c *ihttp.Client) SlackOption {
	return func(s *SlackNotifier) {
		s.client = c
	}
}

func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "ideacheck",
		iconEmoji:  ":bulb:",
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify posts the run summary as a single attachment
func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color, title, emoji := "good", fmt.Sprintf("%s passed", summary.Suite), ":white_check_mark:"
	switch {
	case summary.FailedTests > 0:
		color = "danger"
		title = fmt.Sprintf("%s: %d case(s) failed", summary.Suite, summary.FailedTests)
		emoji = ":x:"
	case summary.TeardownError != "":
		color = "warning"
		title = fmt.Sprintf("%s: teardown failed", summary.Suite)
		emoji = ":warning:"
	case summary.IsRecovery:
		title = fmt.Sprintf("%s recovered", summary.Suite)
		emoji = ":tada:"
	}

	fields := []slackField{
		{Title: "Passed", Value: fmt.Sprintf("%d/%d", summary.PassedTests, summary.TotalTests), Short: true},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.FailedTests), Short: true},
		{Title: "Skipped", Value: fmt.Sprintf("%d", summary.SkippedTests), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
	}
	if summary.Target != "" {
		fields = append(fields, slackField{Title: "Target", Value: summary.Target})
	}

	var text strings.Builder
	if len(summary.FailedResults) > 0 {
		text.WriteString("*Failed cases:*\n")
		for _, ft := range summary.FailedResults {
			fmt.Fprintf(&text, "• `%s`\n", ft.Name)
			for _, e := range ft.Errors {
				fmt.Fprintf(&text, "    %s\n", e)
			}
		}
	}
	if summary.TeardownError != "" {
		fmt.Fprintf(&text, "*Teardown:* %s\n", summary.TeardownError)
	}

	footer := "ideacheck"
	if summary.RunID != "" {
		footer += " run " + summary.RunID
	}

	msg := slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  emoji + " " + title,
			Text:   text.String(),
			Fields: fields,
			Footer: footer,
			TS:     time.Now().Unix(),
		}},
	}

	return post(ctx, s.client, "slack", s.webhookURL, msg)
}
