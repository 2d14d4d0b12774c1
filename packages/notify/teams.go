package notify

import (
	"context"
	"fmt"
	"time"

	ihttp "github.com/abdul-hamid-achik/ideacheck/packages/http"
)

// TeamsNotifier sends notifications to Microsoft Teams via webhook
type TeamsNotifier struct {
	webhookURL string
	client     *ihttp.Client
}

// TeamsOption is a functional option for TeamsNotifier
type TeamsOption func(*TeamsNotifier)

// WithTeamsClient sets the HTTP client used to call the webhook
func WithTeamsClient(c *ihttp.Client) TeamsOption {
	return func(t *TeamsNotifier) {
		t.client = c
	}
}

func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{webhookURL: webhookURL}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TeamsNotifier) Name() string {
	return "teams"
}

// teamsMessage wraps an Adaptive Card
type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string      `json:"type"`
	Size      string      `json:"size,omitempty"`
	Weight    string      `json:"weight,omitempty"`
	Text      string      `json:"text,omitempty"`
	Color     string      `json:"color,omitempty"`
	Wrap      bool        `json:"wrap,omitempty"`
	Spacing   string      `json:"spacing,omitempty"`
	Separator bool        `json:"separator,omitempty"`
	Facts     []teamsFact `json:"facts,omitempty"`
}

type teamsFact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

func (t *TeamsNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color, title := "good", "✓ "+summary.Suite+" passed"
	switch {
	case summary.FailedTests > 0:
		color = "attention"
		title = fmt.Sprintf("✗ %s: %d case(s) failed", summary.Suite, summary.FailedTests)
	case summary.TeardownError != "":
		color = "warning"
		title = fmt.Sprintf("! %s: teardown failed", summary.Suite)
	case summary.IsRecovery:
		title = "✓ " + summary.Suite + " recovered"
	}

	facts := []teamsFact{
		{Title: "Passed", Value: fmt.Sprintf("%d/%d", summary.PassedTests, summary.TotalTests)},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.FailedTests)},
		{Title: "Skipped", Value: fmt.Sprintf("%d", summary.SkippedTests)},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String()},
	}
	if summary.Target != "" {
		facts = append(facts, teamsFact{Title: "Target", Value: summary.Target})
	}

	body := []teamsBlock{
		{Type: "TextBlock", Size: "Large", Weight: "Bolder", Text: title, Color: color, Wrap: true},
		{Type: "FactSet", Separator: true, Spacing: "Medium", Facts: facts},
	}

	for _, ft := range summary.FailedResults {
		body = append(body, teamsBlock{Type: "TextBlock", Text: fmt.Sprintf("**%s**", ft.Name), Color: "attention", Wrap: true})
		for _, e := range ft.Errors {
			body = append(body, teamsBlock{Type: "TextBlock", Text: "- " + e, Wrap: true})
		}
	}
	if summary.TeardownError != "" {
		body = append(body, teamsBlock{Type: "TextBlock", Text: "**Teardown:** " + summary.TeardownError, Color: "warning", Wrap: true})
	}

	body = append(body, teamsBlock{
		Type:      "TextBlock",
		Text:      fmt.Sprintf("_ideacheck %s - %s_", summary.RunID, time.Now().Format(time.RFC3339)),
		Separator: true,
		Spacing:   "Medium",
	})

	msg := teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}

	return post(ctx, t.client, "teams", t.webhookURL, msg)
}
