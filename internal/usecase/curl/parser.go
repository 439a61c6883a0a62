// Package curl turns a pasted curl command into request profile fields.
package curl

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// FormValue is one urlencoded or multipart text value with its coerced form.
type FormValue struct {
	Key   string
	Raw   string
	Value any
}

// ParsedRequest is the structured result of Parse.
type ParsedRequest struct {
	Method         domain.HTTPMethod
	MethodExplicit bool
	URL            string
	Headers        domain.Headers
	Params         domain.Params
	Body           domain.BodySpec
	HasBody        bool
	Form           []FormValue
	Auth           domain.AuthSpec
	Warnings       []string
}

type options struct {
	detectAuth bool
}

type Option func(*options)

// WithAuthDetection moves Authorization and api-key headers into the auth spec.
func WithAuthDetection() Option {
	return func(o *options) { o.detectAuth = true }
}

var boundaryRe = regexp.MustCompile(`--(-*WebKitFormBoundary[0-9A-Za-z]+)`)

// flags that take a value we do not use.
var ignoredValueFlags = map[string]bool{
	"-o": true, "--output": true, "-m": true, "--max-time": true, "--connect-timeout": true,
	"-x": true, "--proxy": true, "-U": true, "--proxy-user": true, "-w": true, "--write-out": true,
	"--retry": true, "-c": true, "--cookie-jar": true, "--cacert": true, "-E": true, "--cert": true,
	"--key": true, "-K": true, "--config": true, "--max-redirs": true, "--resolve": true,
	"--limit-rate": true, "-r": true, "--range": true, "-T": true, "--upload-file": true,
}

var dataFlags = map[string]bool{
	"-d": true, "--data": true, "--data-raw": true, "--data-binary": true, "--data-ascii": true,
	"--data-urlencode": true,
}

var apiKeyHeaders = []string{"x-api-key", "api-key", "apikey"}

// Parse converts a curl command line into a ParsedRequest.
// The only hard failure is input that is not a curl command.
func Parse(text string, opts ...Option) (ParsedRequest, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(strings.ToLower(trimmed), "curl") {
		return ParsedRequest{}, &domain.OpError{Op: "curl.parse", Kind: domain.KindParse, Err: domain.ErrNotCurl}
	}

	tokens := tokenize(trimmed)
	out := ParsedRequest{
		Method:  domain.MethodGet,
		Headers: domain.Headers{},
		Params:  domain.Params{},
		Body:    domain.BodySpec{Type: domain.BodyRaw},
		Auth:    domain.AuthSpec{Type: domain.AuthNone, KeyLocation: domain.APIKeyInHeader},
	}

	var (
		data    []string
		forms   []domain.BodyField
		getMode bool
		sawData bool
	)

	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		flag, inline, hasInline := splitLongFlag(tok)

		value := func() (string, bool) {
			if hasInline {
				return inline, true
			}
			if i+1 < len(tokens) {
				i++
				return tokens[i], true
			}
			out.Warnings = append(out.Warnings, fmt.Sprintf("flag %s has no value", flag))
			return "", false
		}

		switch {
		case flag == "-X" || flag == "--request":
			if v, ok := value(); ok {
				out.setMethod(v)
			}
		case strings.HasPrefix(flag, "-X") && len(flag) > 2 && !strings.HasPrefix(flag, "--"):
			out.setMethod(flag[2:])

		case flag == "-H" || flag == "--header":
			if v, ok := value(); ok {
				name, val, found := strings.Cut(v, ":")
				if found && strings.TrimSpace(name) != "" {
					out.Headers = append(out.Headers, domain.Header{
						Name:  strings.TrimSpace(name),
						Value: strings.TrimSpace(val),
					})
				}
			}

		case dataFlags[flag]:
			if v, ok := value(); ok {
				sawData = true
				if strings.HasPrefix(v, "@") && flag != "--data-raw" {
					out.Warnings = append(out.Warnings, fmt.Sprintf("file reference %q was not loaded", v))
					continue
				}
				if flag == "--data-urlencode" {
					v = urlencodeData(v)
				}
				data = append(data, v)
			}

		case flag == "-F" || flag == "--form":
			if v, ok := value(); ok {
				k, val, _ := strings.Cut(v, "=")
				kind := domain.FieldText
				if strings.HasPrefix(val, "@") {
					kind = domain.FieldFile
					val = strings.TrimPrefix(val, "@")
				}
				forms = append(forms, domain.BodyField{Key: k, Value: val, Kind: kind})
			}

		case flag == "-u" || flag == "--user":
			if v, ok := value(); ok {
				user, pass, _ := strings.Cut(v, ":")
				out.Auth = domain.AuthSpec{Type: domain.AuthBasic, Username: user, Password: pass}
			}

		case flag == "-A" || flag == "--user-agent":
			if v, ok := value(); ok {
				out.Headers = append(out.Headers, domain.Header{Name: "User-Agent", Value: v})
			}
		case flag == "-b" || flag == "--cookie":
			if v, ok := value(); ok {
				out.Headers = append(out.Headers, domain.Header{Name: "Cookie", Value: v})
			}
		case flag == "-e" || flag == "--referer":
			if v, ok := value(); ok {
				out.Headers = append(out.Headers, domain.Header{Name: "Referer", Value: v})
			}

		case flag == "-G" || flag == "--get":
			getMode = true

		case flag == "--url":
			if v, ok := value(); ok {
				out.setURL(v)
			}

		case ignoredValueFlags[flag]:
			_, _ = value()

		case strings.HasPrefix(tok, "-") && len(tok) > 1:
			// bare switch such as --compressed, -k, -L, -s

		default:
			out.setURL(tok)
		}
	}

	if out.URL != "" {
		ps, err := domain.ParamsFromURL(out.URL)
		if err != nil {
			out.Warnings = append(out.Warnings, fmt.Sprintf("malformed url: %v", err))
		}
		out.Params = ps
	}

	switch {
	case len(data) > 0 && getMode:
		out.appendQuery(strings.Join(data, "&"))
		if !out.MethodExplicit {
			out.Method = domain.MethodGet
		}
	case len(data) > 0:
		out.parseBody(strings.Join(data, "&"))
	case len(forms) > 0:
		out.Body = domain.BodySpec{Type: domain.BodyFormData, Fields: forms}
		out.HasBody = true
	}

	if (out.HasBody || sawData) && !getMode && !out.MethodExplicit {
		out.Method = domain.MethodPost
		if i := out.Body.Field("_method"); i >= 0 && out.Body.Type == domain.BodyFormData {
			if m, ok := domain.ParseMethod(out.Body.Fields[i].Value); ok {
				out.Method = m
			}
		}
	}

	if o.detectAuth && out.Auth.Type == domain.AuthNone {
		out.detectAuth()
	}

	return out, nil
}

// Apply copies the parsed request onto a clone of base, keeping its test configuration.
func (r ParsedRequest) Apply(base domain.RequestProfile) domain.RequestProfile {
	out := base.Clone()
	out.Method = r.Method
	out.URL = r.URL
	out.Headers = r.Headers.Clone()
	out.Params = r.Params.Clone()
	out.Body = r.Body.Clone()
	out.Auth = r.Auth
	if out.Auth.Type == "" {
		out.Auth = domain.AuthSpec{Type: domain.AuthNone}
	}
	if out.Auth.KeyLocation == "" {
		out.Auth.KeyLocation = domain.APIKeyInHeader
	}
	return out
}

func (r *ParsedRequest) setMethod(v string) {
	m, ok := domain.ParseMethod(v)
	if !ok {
		r.Warnings = append(r.Warnings, fmt.Sprintf("ignored unsupported method %q", v))
		return
	}
	r.Method = m
	r.MethodExplicit = true
}

func (r *ParsedRequest) setURL(v string) {
	if r.URL != "" {
		r.Warnings = append(r.Warnings, fmt.Sprintf("ignored extra argument %q", v))
		return
	}
	r.URL = v
}

func (r *ParsedRequest) appendQuery(q string) {
	for _, seg := range strings.Split(q, "&") {
		if seg == "" {
			continue
		}
		k, v, _ := strings.Cut(seg, "=")
		r.Params = append(r.Params, domain.Param{Key: queryUnescape(k), Value: queryUnescape(v)})
	}
	if u, err := domain.URLWithParams(r.URL, r.Params); err == nil {
		r.URL = u
	}
}

// parseBody runs the body cascade: multipart, JSON, urlencoded, raw.
func (r *ParsedRequest) parseBody(data string) {
	r.HasBody = true

	if boundary := multipartBoundary(r.Headers, data); boundary != "" {
		fields, err := parseMultipart(data, boundary)
		if err != nil {
			r.Warnings = append(r.Warnings, fmt.Sprintf("multipart body partially parsed: %v", err))
		}
		r.Body = domain.BodySpec{Type: domain.BodyFormData, Fields: fields}
		for _, f := range fields {
			if f.Kind == domain.FieldText {
				r.Form = append(r.Form, FormValue{Key: f.Key, Raw: f.Value, Value: CoerceScalar(f.Value)})
			}
		}
		return
	}

	if gjson.Valid(strings.TrimSpace(data)) {
		r.Body = domain.BodySpec{Type: domain.BodyRaw, Content: data}
		if !r.Headers.Has("Content-Type") {
			r.Headers = append(r.Headers, domain.Header{Name: "Content-Type", Value: "application/json"})
		}
		return
	}

	if pairs, ok := parseURLEncoded(data); ok {
		fields := make([]domain.BodyField, 0, len(pairs))
		for _, p := range pairs {
			fields = append(fields, domain.BodyField{Key: p.Key, Value: p.Raw, Kind: domain.FieldText})
		}
		r.Body = domain.BodySpec{Type: domain.BodyURLEncoded, Fields: fields}
		r.Form = pairs
		if !r.Headers.Has("Content-Type") {
			r.Headers = append(r.Headers, domain.Header{Name: "Content-Type", Value: "application/x-www-form-urlencoded"})
		}
		return
	}

	r.Body = domain.BodySpec{Type: domain.BodyRaw, Content: data}
}

func (r *ParsedRequest) detectAuth() {
	if v, ok := r.Headers.Get("Authorization"); ok {
		scheme, cred, _ := strings.Cut(strings.TrimSpace(v), " ")
		cred = strings.TrimSpace(cred)
		switch strings.ToLower(scheme) {
		case "basic":
			if raw, err := base64.StdEncoding.DecodeString(cred); err == nil {
				user, pass, _ := strings.Cut(string(raw), ":")
				r.Auth = domain.AuthSpec{Type: domain.AuthBasic, Username: user, Password: pass}
				r.Headers = r.Headers.Del("Authorization")
				return
			}
		case "bearer":
			r.Auth = domain.AuthSpec{Type: domain.AuthBearer, Token: cred}
			r.Headers = r.Headers.Del("Authorization")
			return
		}
	}

	for _, h := range r.Headers {
		for _, name := range apiKeyHeaders {
			if strings.EqualFold(h.Name, name) {
				r.Auth = domain.AuthSpec{
					Type:        domain.AuthAPIKey,
					KeyName:     h.Name,
					KeyValue:    h.Value,
					KeyLocation: domain.APIKeyInHeader,
				}
				r.Headers = r.Headers.Del(h.Name)
				return
			}
		}
	}
}

func multipartBoundary(h domain.Headers, data string) string {
	if ct, ok := h.Get("Content-Type"); ok {
		mt, params, err := mime.ParseMediaType(ct)
		if err == nil && mt == "multipart/form-data" && params["boundary"] != "" &&
			strings.Contains(data, "--"+params["boundary"]) {
			return params["boundary"]
		}
	}
	if m := boundaryRe.FindStringSubmatch(data); m != nil {
		return m[1]
	}
	return ""
}

func parseMultipart(data, boundary string) ([]domain.BodyField, error) {
	mr := multipart.NewReader(strings.NewReader(data), boundary)
	var fields []domain.BodyField
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			return fields, nil
		}
		if err != nil {
			return fields, err
		}
		name := part.FormName()
		if name == "" {
			continue
		}
		if fn := part.FileName(); fn != "" {
			fields = append(fields, domain.BodyField{Key: name, Value: fn, Kind: domain.FieldFile})
			continue
		}
		b, err := io.ReadAll(part)
		if err != nil {
			return fields, err
		}
		fields = append(fields, domain.BodyField{Key: name, Value: strings.TrimSpace(string(b)), Kind: domain.FieldText})
	}
}

// parseURLEncoded accepts k=v&k=v where every segment has '=' and a non-empty key.
func parseURLEncoded(data string) ([]FormValue, bool) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, false
	}
	var out []FormValue
	for _, seg := range strings.Split(data, "&") {
		if seg == "" {
			continue
		}
		k, v, found := strings.Cut(seg, "=")
		if !found || k == "" {
			return nil, false
		}
		dk, err := url.QueryUnescape(k)
		if err != nil {
			return nil, false
		}
		dv, err := url.QueryUnescape(v)
		if err != nil {
			return nil, false
		}
		out = append(out, FormValue{Key: dk, Raw: dv, Value: CoerceScalar(dv)})
	}
	return out, len(out) > 0
}

func urlencodeData(v string) string {
	if name, content, found := strings.Cut(v, "="); found {
		return name + "=" + url.QueryEscape(content)
	}
	return url.QueryEscape(v)
}

func queryUnescape(s string) string {
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}
	return s
}

// splitLongFlag splits --flag=value. Short flags are returned unchanged.
func splitLongFlag(tok string) (flag, value string, ok bool) {
	if !strings.HasPrefix(tok, "--") {
		return tok, "", false
	}
	if f, v, found := strings.Cut(tok, "="); found {
		return f, v, true
	}
	return tok, "", false
}
