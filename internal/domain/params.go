package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// ParamsFromURL parses the query string of raw in order. Duplicate keys are kept.
func ParamsFromURL(raw string) (Params, error) {
	u, err := parseAbsolute(raw)
	if err != nil {
		return Params{}, err
	}
	return ParseQuery(u.RawQuery), nil
}

// URLWithParams returns raw with its query replaced by ps, preserving order.
func URLWithParams(raw string, ps Params) (string, error) {
	u, err := parseAbsolute(raw)
	if err != nil {
		return "", err
	}
	u.RawQuery = EncodeQuery(ps)
	u.ForceQuery = false
	return u.String(), nil
}

// EncodeQuery serializes ps as key=value pairs joined by '&'.
func EncodeQuery(ps Params) string {
	if len(ps) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range ps {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// ParseQuery splits a k=v&k=v string in order, unescaping keys and values.
func ParseQuery(raw string) Params {
	out := Params{}
	for _, seg := range strings.Split(raw, "&") {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		out = append(out, Param{Key: unescape(k), Value: unescape(v)})
	}
	return out
}

func unescape(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return s
}

// ValidURL reports whether raw is an absolute http(s) URL.
func ValidURL(raw string) bool {
	_, err := parseAbsolute(raw)
	return err == nil
}

func parseAbsolute(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidRequest)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: url must be absolute http(s): %q", ErrInvalidRequest, raw)
	}
	return u, nil
}
