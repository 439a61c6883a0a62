// Package match decides whether a response reflects a payload.
package match

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// Reflected reports whether payload occurs verbatim (case-sensitive) in the
// response body. With a non-empty scope the search is limited to the JSONPath
// selection of a JSON body; a non-JSON body or an empty selection never matches.
func Reflected(resp domain.Response, payload, scope string) (bool, error) {
	if payload == "" {
		return false, nil
	}
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return strings.Contains(resp.Text(), payload), nil
	}

	doc := resp.JSON
	if doc == nil {
		parsed, err := parseJSON(resp.Body)
		if err != nil {
			return false, nil
		}
		doc = parsed
	}

	val, err := jsonpath.Get(scope, doc)
	if err != nil {
		return false, fmt.Errorf("match scope %q: %w", scope, err)
	}
	if isEmptyValue(val) {
		return false, nil
	}
	return strings.Contains(toString(val), payload), nil
}

// Notes lists response observations that make a reflection more likely to be
// exploitable: missing Content-Security-Policy and X-XSS-Protection headers.
func Notes(resp domain.Response) []string {
	var out []string
	if resp.Header("Content-Security-Policy") == "" {
		out = append(out, "missing Content-Security-Policy header")
	}
	if resp.Header("X-XSS-Protection") == "" {
		out = append(out, "missing X-XSS-Protection header")
	}
	return out
}

func parseJSON(body []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// toString renders a JSONPath result; strings stay as-is, everything else is
// encoded as JSON without HTML escaping.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}
