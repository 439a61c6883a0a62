package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

type buildOptions struct {
	userAgent      string
	browserHeaders bool
	defaults       domain.Headers
}

type BuildOption func(*buildOptions)

// WithUserAgent sets the User-Agent used when the profile does not carry one.
func WithUserAgent(ua string) BuildOption {
	return func(o *buildOptions) { o.userAgent = ua }
}

// WithBrowserHeaders fills in the Accept, Sec-Fetch and cache headers a
// browser would send for the profile's method.
func WithBrowserHeaders() BuildOption {
	return func(o *buildOptions) { o.browserHeaders = true }
}

// WithDefaultHeaders adds h to requests that do not set those names. They
// take precedence over browser headers.
func WithDefaultHeaders(h domain.Headers) BuildOption {
	return func(o *buildOptions) { o.defaults = append(o.defaults, h...) }
}

// BuildRequest materializes a profile into an *http.Request.
//
// Headers are added in order, so duplicates are sent as repeated headers. The
// body is attached for POST, PUT and PATCH, and for DELETE when present. An
// implied Content-Type is only set when the profile has none, except for
// form-data where the multipart boundary type always wins.
func BuildRequest(ctx context.Context, p domain.RequestProfile, opts ...BuildOption) (*http.Request, error) {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	if !domain.ValidURL(p.URL) {
		return nil, buildErr(fmt.Errorf("%w: url %q", domain.ErrInvalidRequest, p.URL))
	}
	target, err := url.Parse(strings.TrimSpace(p.URL))
	if err != nil {
		return nil, buildErr(err)
	}

	auth := p.Auth.Normalized()
	if auth.Type == domain.AuthAPIKey && auth.KeyLocation == domain.APIKeyInQuery && auth.KeyName != "" {
		q := target.RawQuery
		pair := url.QueryEscape(auth.KeyName) + "=" + url.QueryEscape(auth.KeyValue)
		if q == "" {
			target.RawQuery = pair
		} else {
			target.RawQuery = q + "&" + pair
		}
	}

	var (
		body        io.Reader = http.NoBody
		contentType string
		forceCT     bool
	)
	if sendsBody(p) {
		b, ct, force, err := encodeBody(p)
		if err != nil {
			return nil, buildErr(err)
		}
		body, contentType, forceCT = bytes.NewReader(b), ct, force
	}

	req, err := http.NewRequestWithContext(ctx, string(p.Method), target.String(), body)
	if err != nil {
		return nil, buildErr(err)
	}

	for _, h := range p.Headers {
		if strings.TrimSpace(h.Name) == "" {
			continue
		}
		if forceCT && strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		req.Header.Add(h.Name, h.Value)
	}

	if contentType != "" && (forceCT || req.Header.Get("Content-Type") == "") {
		req.Header.Set("Content-Type", contentType)
	}
	if o.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", o.userAgent)
	}
	fillMissing(req, o.defaults)
	if o.browserHeaders {
		fillMissing(req, BrowserHeaders(p.Method))
	}

	switch auth.Type {
	case domain.AuthBasic:
		req.SetBasicAuth(auth.Username, auth.Password)
	case domain.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Token)
	case domain.AuthAPIKey:
		if auth.KeyLocation == domain.APIKeyInHeader && auth.KeyName != "" {
			req.Header.Set(auth.KeyName, auth.KeyValue)
		}
	}

	return req, nil
}

func sendsBody(p domain.RequestProfile) bool {
	if p.Method.CarriesBody() {
		return true
	}
	return p.Method == domain.MethodDelete && !p.Body.IsEmpty()
}

// encodeBody returns the wire body, its implied content type and whether that
// type must replace an explicit header.
func encodeBody(p domain.RequestProfile) ([]byte, string, bool, error) {
	switch p.Body.Type {
	case domain.BodyURLEncoded:
		if len(p.Body.Fields) == 0 {
			return []byte(p.Body.Content), contentTypeForm, false, nil
		}
		ps := make(domain.Params, 0, len(p.Body.Fields))
		for _, f := range p.Body.Fields {
			if f.Kind == domain.FieldFile {
				continue
			}
			ps = append(ps, domain.Param{Key: f.Key, Value: f.Value})
		}
		return []byte(domain.EncodeQuery(ps)), contentTypeForm, false, nil

	case domain.BodyFormData:
		b, ct, err := encodeMultipart(p)
		return b, ct, true, err

	default:
		content := p.Body.Content
		if content == "" {
			return nil, "", false, nil
		}
		if gjson.Valid(content) {
			return []byte(content), contentTypeJSON, false, nil
		}
		return []byte(content), "", false, nil
	}
}

func encodeMultipart(p domain.RequestProfile) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hasMethod := false
	for _, f := range p.Body.Fields {
		if f.Key == "_method" {
			hasMethod = true
		}
		if f.Kind == domain.FieldFile {
			if err := writeFile(w, f); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := w.WriteField(f.Key, f.Value); err != nil {
			return nil, "", err
		}
	}
	// Non-POST multipart requests also carry the verb as a _method field.
	if p.Method != domain.MethodPost && !hasMethod {
		if err := w.WriteField("_method", string(p.Method)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, f domain.BodyField) error {
	src, err := os.Open(f.Value)
	if err != nil {
		return fmt.Errorf("form file %q: %w", f.Key, err)
	}
	defer src.Close()

	part, err := w.CreateFormFile(f.Key, filepath.Base(f.Value))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

func buildErr(err error) error {
	return &domain.OpError{
		Op:   "httpclient.build",
		Kind: domain.KindInvalidConfig,
		Err:  err,
	}
}
