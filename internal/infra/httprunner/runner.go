// Package httprunner sends request profiles over HTTP.
package httprunner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/infra/httpclient"
	"github.com/aalvaropc/xssprobe/internal/ports"
)

const defaultMaxBodyBytes = 1 << 20 // 1MB

// Dispatcher implements ports.RequestDispatcher on top of an *http.Client.
type Dispatcher struct {
	client       *http.Client
	maxBodyBytes int64
	userAgent    string
	build        []httpclient.BuildOption
	limiter      *rate.Limiter
}

type Option func(*Dispatcher)

func WithMaxBodyBytes(n int64) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxBodyBytes = n
		}
	}
}

// WithUserAgent sets the User-Agent sent when a profile has none.
func WithUserAgent(ua string) Option {
	return func(d *Dispatcher) { d.userAgent = ua }
}

// WithBuildOptions passes extra request-building options, such as default headers.
func WithBuildOptions(opts ...httpclient.BuildOption) Option {
	return func(d *Dispatcher) { d.build = append(d.build, opts...) }
}

// WithRateLimit caps outgoing requests at rps per second. Zero or negative
// means unlimited.
func WithRateLimit(rps float64) Option {
	return func(d *Dispatcher) {
		if rps > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func New(client *http.Client, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client:       client,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var _ ports.RequestDispatcher = (*Dispatcher)(nil)

// Dispatch sends p. Build problems come back as *domain.OpError; transport
// failures as *domain.NetworkError.
func (d *Dispatcher) Dispatch(ctx context.Context, p domain.RequestProfile) (domain.Response, error) {
	opts := append([]httpclient.BuildOption(nil), d.build...)
	if d.userAgent != "" {
		opts = append(opts, httpclient.WithUserAgent(d.userAgent))
	}
	req, err := httpclient.BuildRequest(ctx, p, opts...)
	if err != nil {
		return domain.Response{}, err
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return domain.Response{}, networkError(err)
		}
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return domain.Response{}, networkError(err)
	}
	defer resp.Body.Close()

	body, truncated, readErr := readBounded(resp.Body, d.maxBodyBytes)
	latency := time.Since(start).Milliseconds()
	if readErr != nil {
		return domain.Response{}, networkError(readErr)
	}

	out := domain.Response{
		Status:    resp.StatusCode,
		Headers:   cloneHeaders(resp.Header),
		Body:      body,
		Truncated: truncated,
		LatencyMS: latency,
	}
	if isJSON(resp.Header.Get("Content-Type")) && !truncated {
		var doc any
		if json.Unmarshal(body, &doc) == nil {
			out.JSON = doc
		}
	}
	return out, nil
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "json")
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func networkError(err error) *domain.NetworkError {
	return &domain.NetworkError{Kind: ClassifyRunError(err), Message: err.Error(), Err: err}
}

// ClassifyRunError maps a transport error to a coarse kind.
func ClassifyRunError(err error) domain.RunErrorKind {
	if err == nil {
		return domain.RunErrorUnknown
	}
	if errors.Is(err, context.Canceled) {
		return domain.RunErrorCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.RunErrorTimeout
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return domain.RunErrorTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return domain.RunErrorDNS
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return domain.RunErrorConn
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.RunErrorHTTP
	}
	return domain.RunErrorUnknown
}

func readBounded(r io.Reader, maxBytes int64) ([]byte, bool, error) {
	lim := io.LimitReader(r, maxBytes+1)
	b, err := io.ReadAll(lim)
	if err != nil {
		return nil, false, err
	}
	if int64(len(b)) > maxBytes {
		return b[:maxBytes], true, nil
	}
	return b, false, nil
}

func cloneHeaders(h http.Header) map[string][]string {
	out := make(map[string][]string, len(h))
	for k, v := range h {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
