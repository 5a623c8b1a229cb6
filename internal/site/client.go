package site

import (
	"context"
	"mime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/time/rate"

	"github.com/sells-group/harvest-cli/internal/enrich"
	"github.com/sells-group/harvest-cli/internal/resilience"
)

// DefaultDetailURL is the per-hospital lookup endpoint.
const DefaultDetailURL = "https://www.hira.or.kr/ra/hosp/hospInfoAjax.do"

// DetailOptions configures a DetailClient.
type DetailOptions struct {
	URL        string
	UserAgent  string
	Timeout    time.Duration
	RatePerSec float64
	Retry      resilience.RetryConfig
}

// DetailClient fetches hospital detail fragments by lookup key.
type DetailClient struct {
	http    *resty.Client
	limiter *rate.Limiter
	opts    DetailOptions
}

// NewDetailClient creates a rate-limited client with retries on transient
// failures.
func NewDetailClient(opts DetailOptions) *DetailClient {
	if opts.URL == "" {
		opts.URL = DefaultDetailURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", opts.UserAgent)

	return &DetailClient{
		http:    client,
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
	}
}

// FetchDetail requests the detail fragment for key and returns it as UTF-8.
func (c *DetailClient) FetchDetail(ctx context.Context, key, referer string) (enrich.RawDocument, error) {
	retry := c.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("hira", "fetch_detail")
	}

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (enrich.RawDocument, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "detail: rate limit")
		}

		req := c.http.R().
			SetContext(ctx).
			SetQueryParam("ykiho", key)
		if referer != "" {
			req.SetHeader("Referer", referer)
		}

		resp, err := req.Get(c.opts.URL)
		if err != nil {
			return nil, eris.Wrap(err, "detail: request")
		}
		if code := resp.StatusCode(); code >= 400 {
			err := eris.Errorf("detail: status %d", code)
			if resilience.IsTransientHTTPStatus(code) {
				return nil, resilience.NewTransientError(err, code)
			}
			return nil, err
		}

		body, err := decodeBody(resp.Body(), resp.Header().Get("Content-Type"))
		if err != nil {
			return nil, err
		}
		return enrich.RawDocument(body), nil
	})
}

// decodeBody converts body to UTF-8 using the charset named in contentType.
// A missing or unknown charset leaves the body untouched.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return body, nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "detail: decode %s", charset)
	}
	return out, nil
}

var _ enrich.Fetcher = (*DetailClient)(nil)
