package curl

import (
	"encoding/json"
	"regexp"
	"strconv"
)

var numericRe = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// CoerceScalar converts a form value into the closest typed value:
// "" stays "", "null" is nil, "[]" is an empty list, numbers become float64,
// other valid JSON is decoded and anything else stays a string.
func CoerceScalar(s string) any {
	switch s {
	case "":
		return ""
	case "null":
		return nil
	case "[]":
		return []any{}
	}
	if numericRe.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
