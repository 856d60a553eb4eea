package mail

import (
	"bytes"
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/structures"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             EmailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

type personalization struct {
	To []EmailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type errorItem struct {
	Message string `json:"message"`
	Field   any    `json:"field,omitempty"`
	Help    any    `json:"help,omitempty"`
}

type errorResponse struct {
	Errors []errorItem `json:"errors"`
}

type HTTPError struct {
	StatusCode int
	Body       string
	Errors     []errorItem
}

func (e *HTTPError) Error() string {
	if len(e.Errors) > 0 && strings.TrimSpace(e.Errors[0].Message) != "" {
		return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Errors[0].Message)
	}
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = "<empty body>"
	}
	if len(msg) > 4000 {
		msg = msg[:4000] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, msg)
}

func (e *HTTPError) HTTPStatusCode() int {
	return e.StatusCode
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusRequestTimeout ||
			he.StatusCode == http.StatusTooManyRequests ||
			he.StatusCode >= 500
	}
	// Transport errors (reset, timeout) are worth another attempt.
	return true
}

// retryAfter honours a Retry-After header given in seconds, capped at limit.
func retryAfter(resp *http.Response, fallback, limit time.Duration) time.Duration {
	if resp != nil {
		if secs := cast.ToInt(strings.TrimSpace(resp.Header.Get("Retry-After"))); secs > 0 {
			fallback = time.Duration(secs) * time.Second
		}
	}
	return min(fallback, limit)
}

// SendgridNotifier delivers emails through the SendGrid v3 mail send API.
type SendgridNotifier struct {
	baseURL    string
	apiKey     string
	from       EmailAddress
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	renderer   *Renderer
	logger     providers.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewSendgridNotifier(conf *structures.Config, logger providers.Logger) (*SendgridNotifier, error) {
	mc := conf.Mail
	if strings.TrimSpace(mc.APIKey) == "" {
		return nil, errors.New("sendgrid: api key required")
	}
	if strings.TrimSpace(mc.FromEmail) == "" {
		return nil, errors.New("sendgrid: from email required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(mc.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.sendgrid.com"
	}
	timeout := mc.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SendgridNotifier{
		baseURL:    baseURL,
		apiKey:     mc.APIKey,
		from:       EmailAddress{Email: mc.FromEmail, Name: mc.FromName},
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: max(mc.MaxRetries, 0),
		backoff:    time.Second,
		renderer:   NewRenderer(conf.Reminder.InactiveDays, mc.FromName),
		logger:     logger,
		sleep:      sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (n *SendgridNotifier) SendReminder(ctx context.Context, student *models.Student) bool {
	msg, err := n.renderer.Reminder(student)
	if err != nil {
		n.logger.Errorf(providers.TypeMail, "Unable to render reminder for %s: %s", student.ID, err)
		return false
	}
	return n.deliver(ctx, msg, "reminder")
}

func (n *SendgridNotifier) SendWelcome(ctx context.Context, student *models.Student) bool {
	msg, err := n.renderer.Welcome(student)
	if err != nil {
		n.logger.Errorf(providers.TypeMail, "Unable to render welcome for %s: %s", student.ID, err)
		return false
	}
	return n.deliver(ctx, msg, "welcome")
}

func (n *SendgridNotifier) deliver(ctx context.Context, msg *Message, category string) bool {
	if strings.TrimSpace(msg.To) == "" {
		n.logger.Warnf(providers.TypeMail, "Skipping %s email, recipient has no address", category)
		return false
	}
	if err := n.Send(ctx, msg, category); err != nil {
		n.logger.Errorf(providers.TypeMail, "Failed to send %s email to %s: %s", category, msg.To, err)
		return false
	}
	n.logger.Infof(providers.TypeMail, "Sent %s email to %s", category, msg.To)
	return true
}

// Send posts one message, retrying throttling and server errors.
func (n *SendgridNotifier) Send(ctx context.Context, msg *Message, categories ...string) error {
	body := mailSendRequest{
		Personalizations: []personalization{{To: []EmailAddress{{Email: msg.To, Name: msg.ToName}}}},
		From:             n.from,
		Subject:          msg.Subject,
		Content:          []mailContent{{Type: "text/html", Value: msg.HTML}},
		Categories:       categories,
	}
	_, err := n.do(ctx, http.MethodPost, "/v3/mail/send", body)
	return err
}

func (n *SendgridNotifier) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	backoff := n.backoff

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := n.doOnce(ctx, method, path, body)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) || attempt >= n.maxRetries {
			return nil, err
		}

		wait := retryAfter(resp, backoff, 10*time.Second)
		n.logger.Warnf(providers.TypeMail, "Sendgrid request retrying (%d/%d) in %s: %s", attempt+1, n.maxRetries, wait, err)
		if err := n.sleep(ctx, wait); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (n *SendgridNotifier) doOnce(ctx context.Context, method, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && len(er.Errors) > 0 {
			he.Errors = er.Errors
		}
		return resp, he
	}
	return resp, nil
}
