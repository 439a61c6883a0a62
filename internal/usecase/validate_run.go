package usecase

import (
	"fmt"
	"strings"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase/fields"
)

// ValidateRun checks everything a test run needs and reports every problem at
// once as a *domain.ValidationError. On success it returns the resolved target.
func ValidateRun(p domain.RequestProfile) (domain.TargetField, error) {
	var missing []string

	if !domain.ValidURL(p.URL) {
		missing = append(missing, "URL")
	}
	if _, ok := domain.ParseMethod(string(p.Method)); !ok {
		missing = append(missing, "Method")
	}
	if p.Method.CarriesBody() && p.Body.IsEmpty() {
		missing = append(missing, "Request Body")
	}

	vt := p.XSS.ValueType
	if vt != domain.ValueParams && vt != domain.ValueBody {
		missing = append(missing, "Value Type")
	}

	var target domain.TargetField
	name := strings.TrimSpace(p.XSS.TargetField)
	switch {
	case name == "":
		missing = append(missing, "Target Field")
	case vt == domain.ValueParams || vt == domain.ValueBody:
		t, ok := fields.Resolve(p, vt, name)
		if !ok {
			msg := fmt.Sprintf("Target Field (%q not found in %s", name, vt)
			if s := fields.Suggest(p, vt, name); s != "" {
				msg += fmt.Sprintf("; did you mean %q?", s)
			}
			missing = append(missing, msg+")")
		}
		target = t
	}

	if !p.XSS.PayloadLevel.Valid() {
		missing = append(missing, "Payload Level")
	}

	if len(missing) > 0 {
		return domain.TargetField{}, &domain.ValidationError{Missing: missing}
	}
	return target, nil
}
