// Package inject substitutes a payload into one field of a cloned profile.
package inject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

const op = "inject.apply"

// Apply returns a copy of p with target replaced by payload. p is never modified.
func Apply(p domain.RequestProfile, target domain.TargetField, payload string) (domain.RequestProfile, error) {
	c := p.Clone()

	var err error
	switch target.Kind {
	case domain.TargetParam:
		err = param(&c, target.Name, payload)
	case domain.TargetJSON:
		err = jsonField(&c, target.Name, payload)
	case domain.TargetFormData, domain.TargetURLEncoded:
		err = formField(&c, target, payload)
	case domain.TargetRaw:
		err = raw(&c, payload)
	default:
		err = fmt.Errorf("unknown target kind %q", target.Kind)
	}
	if err != nil {
		return domain.RequestProfile{}, &domain.OpError{Op: op, Kind: domain.KindInjection, Path: target.Name, Err: err}
	}
	return c, nil
}

func param(c *domain.RequestProfile, name, payload string) error {
	ps, err := domain.ParamsFromURL(c.URL)
	if err != nil {
		return err
	}

	out := make(domain.Params, 0, len(ps))
	found := false
	for _, prm := range ps {
		if prm.Key != name {
			out = append(out, prm)
			continue
		}
		if found {
			continue
		}
		found = true
		out = append(out, domain.Param{Key: name, Value: payload})
	}
	if !found {
		return domain.ErrTargetMissing
	}

	u, err := domain.URLWithParams(c.URL, out)
	if err != nil {
		return err
	}
	c.URL = u
	c.Params = out
	return nil
}

func jsonField(c *domain.RequestProfile, name, payload string) error {
	if c.Body.Type != domain.BodyRaw {
		return fmt.Errorf("json target on %s body", c.Body.Type)
	}
	content := c.Body.Content
	if !gjson.Valid(content) {
		return fmt.Errorf("body is not valid JSON")
	}

	path := Path(name)
	if !gjson.Get(content, path).Exists() {
		return domain.ErrTargetMissing
	}

	updated, err := sjson.SetRaw(content, path, quote(payload))
	if err != nil {
		return err
	}
	c.Body.Content = updated
	return nil
}

func formField(c *domain.RequestProfile, target domain.TargetField, payload string) error {
	want := domain.BodyFormData
	if target.Kind == domain.TargetURLEncoded {
		want = domain.BodyURLEncoded
	}
	if c.Body.Type != want {
		return fmt.Errorf("%s target on %s body", target.Kind, c.Body.Type)
	}

	if len(c.Body.Fields) == 0 && strings.TrimSpace(c.Body.Content) != "" {
		c.Body.Fields = fieldsFromContent(c.Body.Content)
	}

	idx := -1
	for i, f := range c.Body.Fields {
		if f.Key == target.Name && f.Kind != domain.FieldFile {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrTargetMissing
	}
	c.Body.Fields[idx].Value = payload

	if want == domain.BodyURLEncoded {
		c.Body.Content = encodeFields(c.Body.Fields)
	}
	return nil
}

func raw(c *domain.RequestProfile, payload string) error {
	if c.Body.Type != domain.BodyRaw {
		return fmt.Errorf("raw target on %s body", c.Body.Type)
	}
	c.Body.Content = payload
	return nil
}

// Path converts a dot-joined field name into an escaped gjson/sjson path.
func Path(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = gjson.Escape(p)
	}
	return strings.Join(parts, ".")
}

// quote encodes s as a JSON string without HTML escaping so payloads stay literal.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimRight(buf.String(), "\n")
}

func fieldsFromContent(content string) []domain.BodyField {
	var out []domain.BodyField
	for _, p := range domain.ParseQuery(content) {
		out = append(out, domain.BodyField{Key: p.Key, Value: p.Value, Kind: domain.FieldText})
	}
	return out
}

func encodeFields(fs []domain.BodyField) string {
	ps := make(domain.Params, 0, len(fs))
	for _, f := range fs {
		if f.Kind == domain.FieldFile {
			continue
		}
		ps = append(ps, domain.Param{Key: f.Key, Value: f.Value})
	}
	return domain.EncodeQuery(ps)
}
