package codeforces

import (
	"cftracker/internal/models"
	"cftracker/internal/providers"
	"cftracker/internal/structures"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultBaseURL   = "https://codeforces.com/api"
	defaultUserAgent = "cftracker/1.0"
)

// Client talks to the Codeforces read-only API. All callers share one
// minimum-interval gate, so a Client should be a process-wide singleton.
type Client struct {
	baseURL        string
	userAgent      string
	httpClient     *http.Client
	minInterval    time.Duration
	retryDelay     time.Duration
	maxRetries     int
	maxSubmissions int
	retryNotFound  bool

	logger  providers.Logger
	metrics providers.MetricsProviderInterface

	mu       sync.Mutex
	lastCall time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface) *Client {
	cf := conf.Codeforces

	baseURL := strings.TrimRight(strings.TrimSpace(cf.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := cf.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := cf.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cf.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	maxSubmissions := cf.MaxSubmissions
	if maxSubmissions <= 0 {
		maxSubmissions = 50000
	}

	return &Client{
		baseURL:        baseURL,
		userAgent:      userAgent,
		httpClient:     &http.Client{Timeout: timeout},
		minInterval:    cf.MinInterval,
		retryDelay:     cf.RetryDelay,
		maxRetries:     maxRetries,
		maxSubmissions: maxSubmissions,
		retryNotFound:  cf.RetryNotFound,
		logger:         logger,
		metrics:        metrics,
		now:            time.Now,
		sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// wait blocks until minInterval has passed since the previous outbound call.
// The lock is held while sleeping so concurrent callers queue up in turn.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastCall.IsZero() {
		if d := c.lastCall.Add(c.minInterval).Sub(c.now()); d > 0 {
			if err := c.sleep(ctx, d); err != nil {
				return err
			}
		}
	}
	c.lastCall = c.now()
	return nil
}

// Request calls an API method and returns the raw "result" payload.
// Retry state is local to the call.
func (c *Client) Request(ctx context.Context, method string, params url.Values) ([]byte, error) {
	attempts := c.maxRetries + 1

	for attempt := 0; ; attempt++ {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		result, err := c.doOnce(ctx, method, params)
		if err == nil {
			c.logger.Debugf(providers.TypeCodeforces, "%s attempt %d/%d: ok", method, attempt+1, attempts)
			c.metrics.IncUpstreamRequests(method, "ok")
			return result, nil
		}

		if ctx.Err() != nil {
			c.metrics.IncUpstreamRequests(method, "canceled")
			return nil, ctx.Err()
		}

		var te *TransientError
		if !errors.As(err, &te) {
			c.logger.Debugf(providers.TypeCodeforces, "%s attempt %d/%d: %s", method, attempt+1, attempts, err)
			c.metrics.IncUpstreamRequests(method, outcomeOf(err))
			return nil, err
		}

		notFound := errors.Is(te, ErrNotFound)
		if attempt >= c.maxRetries || (notFound && !c.retryNotFound) {
			c.logger.Debugf(providers.TypeCodeforces, "%s attempt %d/%d: giving up: %s", method, attempt+1, attempts, err)
			if notFound {
				c.metrics.IncUpstreamRequests(method, "permanent")
				return nil, &PermanentError{Method: method, StatusCode: te.StatusCode, Comment: te.Comment, Err: ErrNotFound}
			}
			c.metrics.IncUpstreamRequests(method, "transient")
			return nil, err
		}

		delay, reason := c.retryDelay, retryReason(te)
		if te.StatusCode == http.StatusTooManyRequests {
			delay *= 2
		}
		c.logger.Debugf(providers.TypeCodeforces, "%s attempt %d/%d: %s, retrying in %s", method, attempt+1, attempts, err, delay)
		c.metrics.IncUpstreamRetries(method, reason)

		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) doOnce(ctx context.Context, method string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &PermanentError{Method: method, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTransientNetErr(err) {
			return nil, &TransientError{Method: method, Err: err}
		}
		return nil, &PermanentError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTransientNetErr(err) {
			return nil, &TransientError{Method: method, StatusCode: resp.StatusCode, Err: err}
		}
		return nil, &PermanentError{Method: method, StatusCode: resp.StatusCode, Err: err}
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &TransientError{Method: method, StatusCode: resp.StatusCode, Comment: env.Comment}
	case resp.StatusCode >= 400:
		pe := &PermanentError{Method: method, StatusCode: resp.StatusCode, Comment: env.Comment}
		if isNotFound(env.Comment) {
			pe.Err = ErrNotFound
		}
		return nil, pe
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &PermanentError{Method: method, StatusCode: resp.StatusCode, Comment: env.Comment}
	}

	if decodeErr != nil {
		return nil, &MalformedPayloadError{Entity: "envelope", Err: decodeErr}
	}
	if env.Status != statusOK {
		if isNotFound(env.Comment) {
			return nil, &TransientError{Method: method, StatusCode: resp.StatusCode, Comment: env.Comment, Err: ErrNotFound}
		}
		return nil, &PermanentError{Method: method, StatusCode: resp.StatusCode, Comment: env.Comment}
	}
	return env.Result, nil
}

func isNotFound(comment string) bool {
	return strings.Contains(strings.ToLower(comment), "not found")
}

func isTransientNetErr(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryReason(te *TransientError) string {
	switch {
	case errors.Is(te, ErrNotFound):
		return "not_found"
	case te.StatusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case te.StatusCode >= 500:
		return "status_" + strconv.Itoa(te.StatusCode)
	default:
		return "network"
	}
}

func outcomeOf(err error) string {
	var mp *MalformedPayloadError
	if errors.As(err, &mp) {
		return "malformed"
	}
	return "permanent"
}

// UserInfo fetches the profile of a single handle.
func (c *Client) UserInfo(ctx context.Context, handle string) (*models.Profile, error) {
	payload, err := c.Request(ctx, "user.info", url.Values{"handles": {handle}})
	if err != nil {
		return nil, err
	}
	users, err := decodeResult[[]RawUser]("user", payload)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, &PermanentError{Method: "user.info", Comment: "empty result for " + handle, Err: ErrNotFound}
	}
	return MapProfile(users[0])
}

// UserRating returns the rating history. A handle without rated contests
// yields an empty history.
func (c *Client) UserRating(ctx context.Context, handle string) ([]models.RatingChange, error) {
	payload, err := c.Request(ctx, "user.rating", url.Values{"handle": {handle}})
	if err != nil {
		if noRatingHistory(err) {
			c.logger.Debugf(providers.TypeCodeforces, "No rating history for %s", handle)
			return []models.RatingChange{}, nil
		}
		return nil, err
	}
	raw, err := decodeResult[[]RawRatingChange]("rating change", payload)
	if err != nil {
		return nil, err
	}
	out := make([]models.RatingChange, 0, len(raw))
	for _, r := range raw {
		rc, err := MapRatingChange(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, nil
}

func noRatingHistory(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var pe *PermanentError
	return errors.As(err, &pe) && strings.Contains(strings.ToLower(pe.Comment), "no rating changes")
}

// UserStatus returns up to count most recent submissions, capped at the
// configured maximum.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]models.SubmissionEvent, error) {
	if count <= 0 || count > c.maxSubmissions {
		count = c.maxSubmissions
	}
	params := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {strconv.Itoa(count)},
	}
	payload, err := c.Request(ctx, "user.status", params)
	if err != nil {
		return nil, err
	}
	raw, err := decodeResult[[]RawSubmission]("submission", payload)
	if err != nil {
		return nil, err
	}
	out := make([]models.SubmissionEvent, 0, len(raw))
	for _, r := range raw {
		ev, err := MapSubmission(r)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, nil
}

func (c *Client) ContestList(ctx context.Context, gym bool) ([]ContestInfo, error) {
	payload, err := c.Request(ctx, "contest.list", url.Values{"gym": {strconv.FormatBool(gym)}})
	if err != nil {
		return nil, err
	}
	return decodeResult[[]ContestInfo]("contest", payload)
}

// IsAvailable checks the API with a cheap call.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if _, err := c.Request(ctx, "contest.list", url.Values{"gym": {"false"}}); err != nil {
		c.logger.Warnf(providers.TypeCodeforces, "Codeforces API unavailable: %s", err)
		return false
	}
	return true
}
