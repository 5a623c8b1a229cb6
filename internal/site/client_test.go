package site

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/harvest-cli/internal/resilience"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestDetailClient_FetchDecodesCharset(t *testing.T) {
	enc, err := htmlindex.Get("euc-kr")
	require.NoError(t, err)
	body, err := enc.NewEncoder().String(detailHTML)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "JDQ4abc", r.URL.Query().Get("ykiho"))
		assert.Equal(t, "https://map.test/page", r.Header.Get("Referer"))
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=EUC-KR")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewDetailClient(DetailOptions{URL: srv.URL})
	doc, err := c.FetchDetail(context.Background(), "JDQ4abc", "https://map.test/page")
	require.NoError(t, err)

	fields, err := ParseHospitalDetail(doc)
	require.NoError(t, err)
	assert.Equal(t, "20", fields["doctors"])
	assert.Equal(t, "내과, 외과", fields["specialties"])
}

func TestDetailClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(detailHTML))
	}))
	defer srv.Close()

	c := NewDetailClient(DetailOptions{
		URL:   srv.URL,
		Retry: resilience.RetryConfig{MaxAttempts: 3, Sleep: noSleep},
	})
	doc, err := c.FetchDetail(context.Background(), "JDQ4x", "")
	require.NoError(t, err)
	assert.Contains(t, string(doc), "총 인원")
	assert.Equal(t, int32(2), calls.Load())
}

func TestDetailClient_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewDetailClient(DetailOptions{
		URL:   srv.URL,
		Retry: resilience.RetryConfig{MaxAttempts: 3, Sleep: noSleep},
	})
	_, err := c.FetchDetail(context.Background(), "JDQ4x", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeBody(t *testing.T) {
	out, err := decodeBody([]byte("plain"), "")
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))

	out, err = decodeBody([]byte("plain"), "text/html; charset=x-unknown")
	require.NoError(t, err)
	assert.Equal(t, "plain", string(out))
}
