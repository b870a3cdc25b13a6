// Package places looks up the published opening hours of a place listing.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

var (
	// ErrNoHours is returned when the listing exists but publishes no weekly hours.
	ErrNoHours = errors.New("place has no opening hours")
	// ErrNotFound is returned when the listing does not exist.
	ErrNotFound = errors.New("place not found")
)

// StatusError is a non-OK answer from the lookup service.
type StatusError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("places: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("places: http %d", e.HTTPStatus)
}

// Options configure a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Language string
	Timeout  time.Duration
	// RatePerSecond <= 0 disables client-side throttling.
	RatePerSecond float64
	Burst         int
}

// Client calls the place details endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter

	redis    *redis.Client
	cacheTTL time.Duration
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Result       struct {
		OpeningHours *struct {
			WeekdayText []string `json:"weekday_text"`
		} `json:"opening_hours,omitempty"`
	} `json:"result"`
}

// NewClient constructs a client from opts.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		language:   opts.Language,
		httpClient: &http.Client{Timeout: timeout},
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return c
}

// UseRedisCache configures optional Redis caching of weekday text.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// WeekdayText returns the "<Day>: <ranges>" lines of placeID.
func (c *Client) WeekdayText(ctx context.Context, placeID string) ([]string, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, errors.New("place id is required")
	}

	cacheKey := fmt.Sprintf("places:hours:%s:%s", c.language, placeID)
	var lines []string
	if c.readCache(ctx, cacheKey, &lines) {
		return lines, nil
	}

	q := url.Values{}
	q.Set("place_id", placeID)
	q.Set("fields", "opening_hours")
	if c.language != "" {
		q.Set("language", c.language)
	}
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}
	endpoint := c.baseURL + "/details/json?" + q.Encode()

	var resp detailsResponse
	if err := c.doGet(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "NOT_FOUND", "ZERO_RESULTS":
		return nil, fmt.Errorf("%w: %s", ErrNotFound, placeID)
	default:
		return nil, &StatusError{HTTPStatus: http.StatusOK, Status: resp.Status, Message: resp.ErrorMessage}
	}
	if resp.Result.OpeningHours == nil || len(resp.Result.OpeningHours.WeekdayText) == 0 {
		return nil, ErrNoHours
	}

	lines = resp.Result.OpeningHours.WeekdayText
	c.writeCache(ctx, cacheKey, lines)
	return lines, nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &StatusError{HTTPStatus: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
