package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// SlackNotifier posts run summaries to a Slack incoming webhook
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

// SlackMessage is the webhook payload
type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment is one colored block of a message
type SlackAttachment struct {
	Color      string       `json:"color"`
	Title      string       `json:"title,omitempty"`
	Text       string       `json:"text,omitempty"`
	Fields     []SlackField `json:"fields,omitempty"`
	Footer     string       `json:"footer,omitempty"`
	MarkdownIn []string     `json:"mrkdwn_in,omitempty"`
}

// SlackField is a title/value pair; short fields share a row
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SlackColor returns the Slack color for a notification type
func SlackColor(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "good"
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "danger"
	default:
		return "#439FE0"
	}
}

// Send posts n to the webhook. An empty webhook URL disables it.
func (s *SlackNotifier) Send(n Notification) error {
	if s.webhookURL == "" {
		return nil
	}

	payload, err := json.Marshal(slackMessage(n))
	if err != nil {
		return fmt.Errorf("encode slack message: %w", err)
	}

	resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	return nil
}

// slackMessage lays out a run summary as attachment fields with the failing
// commands in a code block. Other notifications carry their message as text.
func slackMessage(n Notification) SlackMessage {
	a := SlackAttachment{
		Color:  SlackColor(n.Type),
		Title:  n.Document,
		Footer: footer(n),
	}
	sum := n.Run
	if sum == nil {
		a.Text = n.Message
		return SlackMessage{Text: n.Title, Attachments: []SlackAttachment{a}}
	}

	a.Fields = []SlackField{
		{Title: "Mode", Value: string(sum.Mode), Short: true},
		{Title: "Duration", Value: sum.Duration.Round(time.Second).String(), Short: true},
		{Title: "Goals", Value: strconv.Itoa(sum.Goals), Short: true},
		{Title: "Commands", Value: fmt.Sprintf("%d passed, %d failed, %d unknown", sum.Passed, sum.Failed, sum.Unknown), Short: true},
	}
	if len(sum.Failing) > 0 {
		var b strings.Builder
		b.WriteString("```\n")
		for _, f := range sum.Failing {
			b.WriteString(f + "\n")
		}
		b.WriteString("```")
		if sum.More > 0 {
			fmt.Fprintf(&b, "\n_and %d more_", sum.More)
		}
		a.Text = b.String()
		a.MarkdownIn = []string{"text"}
	}
	return SlackMessage{Text: n.Title, Attachments: []SlackAttachment{a}}
}

func footer(n Notification) string {
	if n.RunID == "" {
		return "doccheck"
	}
	return "doccheck run " + n.RunID
}
