package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{"status":"OK","result":{"opening_hours":{"weekday_text":[
"Monday: 11:00 AM – 2:30 PM, 5:30 – 10:30 PM","Sunday: Closed"]}}}`

func newServer(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "/details/json", r.URL.Path)
		assert.Equal(t, "opening_hours", r.URL.Query().Get("fields"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "fr", r.URL.Query().Get("language"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_WeekdayText(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, okBody, &hits)

	c := NewClient(Options{BaseURL: srv.URL + "/", APIKey: "secret", Language: "fr"})
	lines, err := c.WeekdayText(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday: 11:00 AM – 2:30 PM, 5:30 – 10:30 PM", "Sunday: Closed"}, lines)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"no hours", http.StatusOK, `{"status":"OK","result":{}}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNoHours)
		}},
		{"empty weekday text", http.StatusOK, `{"status":"OK","result":{"opening_hours":{"weekday_text":[]}}}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNoHours)
		}},
		{"not found", http.StatusOK, `{"status":"NOT_FOUND"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNotFound)
		}},
		{"denied", http.StatusOK, `{"status":"REQUEST_DENIED","error_message":"bad key"}`, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "REQUEST_DENIED", se.Status)
			assert.Contains(t, err.Error(), "bad key")
		}},
		{"http failure", http.StatusBadGateway, `oops`, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, http.StatusBadGateway, se.HTTPStatus)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			srv := newServer(t, tt.status, tt.body, &hits)
			c := NewClient(Options{BaseURL: srv.URL, APIKey: "secret", Language: "fr"})
			_, err := c.WeekdayText(context.Background(), "abc")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_EmptyPlaceID(t *testing.T) {
	c := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := c.WeekdayText(context.Background(), "  ")
	assert.Error(t, err)
}

func TestClient_RedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var hits int32
	srv := newServer(t, http.StatusOK, okBody, &hits)

	c := NewClient(Options{BaseURL: srv.URL, APIKey: "secret", Language: "fr"})
	c.UseRedisCache(rdb, time.Minute)

	ctx := context.Background()
	first, err := c.WeekdayText(ctx, "abc")
	require.NoError(t, err)
	second, err := c.WeekdayText(ctx, "abc")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.True(t, mr.Exists("places:hours:fr:abc"))

	mr.FastForward(2 * time.Minute)
	_, err = c.WeekdayText(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	var hits int32
	srv := newServer(t, http.StatusOK, okBody, &hits)
	c := NewClient(Options{BaseURL: srv.URL, APIKey: "secret", Language: "fr", RatePerSecond: 0.001, Burst: 1})

	_, err := c.WeekdayText(context.Background(), "abc")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.WeekdayText(ctx, "def")
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
