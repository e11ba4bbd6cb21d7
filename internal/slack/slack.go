package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pep299/research-blog-pipeline/internal/archive"
)

// DefaultBaseURL is the Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

const excerptLength = 600

// Client handles Slack notifications
type Client struct {
	botToken   string
	channel    string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Slack client
func NewClient(botToken, channel string) *Client {
	return &Client{
		botToken: botToken,
		channel:  channel,
		baseURL:  DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL points the client at another Web API root.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// ChatPostMessageRequest represents a Slack chat.postMessage request
type ChatPostMessageRequest struct {
	Channel   string `json:"channel"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

// NotifyRun posts the topic, summary and the start of the review of a run.
func (c *Client) NotifyRun(ctx context.Context, record *archive.Record) error {
	return c.sendMessage(ctx, formatRunMessage(record), c.channel)
}

// NotifyFailure posts the topic and error of a run that did not finish.
func (c *Client) NotifyFailure(ctx context.Context, topic string, runErr error) error {
	text := fmt.Sprintf(":warning: *Pipeline run failed*\n\n*%s*\n```%s```", topic, excerpt(runErr.Error(), excerptLength))
	return c.sendMessage(ctx, text, c.channel)
}

func formatRunMessage(record *archive.Record) string {
	return fmt.Sprintf(`:memo: *New blog post generated*

*%s*
:id: Run: %s
:robot_face: Model: %s

*Summary*
%s

*Review*
%s

:stopwatch: %s (%d ms)`,
		record.Topic,
		record.ID,
		record.Model,
		excerpt(record.Result.Summary, excerptLength),
		excerpt(record.Result.Review, excerptLength),
		record.FinishedAt.Format("2006-01-02 15:04:05 MST"),
		record.DurationMS)
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

// sendMessage sends a message to the specified Slack channel
func (c *Client) sendMessage(ctx context.Context, text string, channel string) error {
	req := ChatPostMessageRequest{
		Channel:   channel,
		Text:      text,
		Username:  "Research Blog Pipeline",
		IconEmoji: ":robot_face:",
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.botToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack API returned status %d", resp.StatusCode)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&slackResp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if !slackResp.OK {
		return fmt.Errorf("slack API error: %s", slackResp.Error)
	}

	return nil
}
