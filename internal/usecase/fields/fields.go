// Package fields lists the injectable locations of a request profile.
package fields

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/tidwall/gjson"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// Enumerate returns every injectable field: URL params first, then body fields
// in document order. It never mutates p.
func Enumerate(p domain.RequestProfile) []domain.TargetField {
	out := make([]domain.TargetField, 0, len(p.Params))

	seen := map[string]bool{}
	for _, prm := range p.Params {
		if seen[prm.Key] {
			continue
		}
		seen[prm.Key] = true
		out = append(out, domain.TargetField{
			Name:  prm.Key,
			Kind:  domain.TargetParam,
			Label: "Param: " + prm.Key,
		})
	}

	return append(out, Body(p.Body)...)
}

// Body lists the body fields of b.
func Body(b domain.BodySpec) []domain.TargetField {
	switch b.Type {
	case domain.BodyFormData, domain.BodyURLEncoded:
		return keyed(b)
	default:
		return rawFields(b.Content)
	}
}

func keyed(b domain.BodySpec) []domain.TargetField {
	kind, prefix := domain.TargetFormData, "Form Data: "
	if b.Type == domain.BodyURLEncoded {
		kind, prefix = domain.TargetURLEncoded, "Form URL: "
	}

	fs := b.Fields
	if len(fs) == 0 && strings.TrimSpace(b.Content) != "" {
		// Content-only forms are split into fields at injection time.
		fs = nil
		for _, p := range domain.ParseQuery(b.Content) {
			fs = append(fs, domain.BodyField{Key: p.Key, Value: p.Value, Kind: domain.FieldText})
		}
	}

	var out []domain.TargetField
	for _, f := range fs {
		if f.Kind == domain.FieldFile || f.Key == "" {
			continue
		}
		out = append(out, domain.TargetField{Name: f.Key, Kind: kind, Label: prefix + f.Key})
	}
	return out
}

func rawFields(content string) []domain.TargetField {
	root := gjson.Parse(content)
	if !gjson.Valid(content) || !(root.IsObject() || root.IsArray()) {
		return []domain.TargetField{{Name: domain.RawBodyField, Kind: domain.TargetRaw, Label: "Body (Raw)"}}
	}

	var out []domain.TargetField
	if root.IsArray() {
		// Top-level array elements are leaves keyed by index.
		i := 0
		root.ForEach(func(_, _ gjson.Result) bool {
			name := strconv.Itoa(i)
			out = append(out, domain.TargetField{Name: name, Kind: domain.TargetJSON, Label: "JSON: " + name})
			i++
			return true
		})
		return out
	}

	walk(root, "", &out)
	return out
}

// walk visits object members depth-first; arrays and scalars are leaves.
func walk(obj gjson.Result, prefix string, out *[]domain.TargetField) {
	obj.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		if value.IsObject() {
			walk(value, name, out)
			return true
		}
		*out = append(*out, domain.TargetField{Name: name, Kind: domain.TargetJSON, Label: "JSON: " + name})
		return true
	})
}

// Resolve finds the field named name among the fields valueType selects.
func Resolve(p domain.RequestProfile, valueType domain.ValueType, name string) (domain.TargetField, bool) {
	for _, f := range candidates(p, valueType) {
		if f.Name == name {
			return f, true
		}
	}
	return domain.TargetField{}, false
}

// Suggest returns the closest field name to name, or "" when nothing is close.
func Suggest(p domain.RequestProfile, valueType domain.ValueType, name string) string {
	type scored struct {
		name string
		dist int
	}
	var best []scored
	for _, f := range candidates(p, valueType) {
		d := levenshtein.Distance(strings.ToLower(name), strings.ToLower(f.Name), nil)
		best = append(best, scored{f.Name, d})
	}
	if len(best) == 0 {
		return ""
	}
	sort.SliceStable(best, func(i, j int) bool { return best[i].dist < best[j].dist })

	limit := len(name)/2 + 1
	if best[0].dist > limit {
		return ""
	}
	return best[0].name
}

func candidates(p domain.RequestProfile, valueType domain.ValueType) []domain.TargetField {
	var out []domain.TargetField
	for _, f := range Enumerate(p) {
		if (valueType == domain.ValueParams) == (f.Kind == domain.TargetParam) {
			out = append(out, f)
		}
	}
	return out
}
