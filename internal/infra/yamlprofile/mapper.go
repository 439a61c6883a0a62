package yamlprofile

import (
	"fmt"
	"strings"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// MapProfile validates a decoded document and builds the profile it describes.
func MapProfile(path string, yp YAMLProfile) (string, domain.RequestProfile, error) {
	name := strings.TrimSpace(yp.Name)
	if name == "" {
		return "", domain.RequestProfile{}, invalidField(path, "name", "profile name is required")
	}
	if strings.TrimSpace(yp.Method) == "" {
		return "", domain.RequestProfile{}, invalidField(path, "method", "method is required")
	}
	method, ok := domain.ParseMethod(yp.Method)
	if !ok {
		return "", domain.RequestProfile{}, invalidField(path, "method", fmt.Sprintf("unsupported method %q", yp.Method))
	}
	if strings.TrimSpace(yp.URL) == "" {
		return "", domain.RequestProfile{}, invalidField(path, "url", "url is required")
	}

	p := domain.NewProfile()
	p.Method = method
	p.URL = strings.TrimSpace(yp.URL)
	// A URL that does not parse still imports; validation happens before a run.
	_ = p.SyncParams()

	for i, h := range yp.Headers {
		if strings.TrimSpace(h.Name) == "" {
			return "", domain.RequestProfile{}, invalidField(path, fmt.Sprintf("headers[%d].name", i), "header name is required")
		}
		p.Headers = append(p.Headers, domain.Header{Name: h.Name, Value: h.Value})
	}

	if yp.Auth != nil {
		auth, err := mapAuth(path, *yp.Auth)
		if err != nil {
			return "", domain.RequestProfile{}, err
		}
		p.Auth = auth
	}

	if yp.Body != nil {
		body, err := mapBody(path, *yp.Body)
		if err != nil {
			return "", domain.RequestProfile{}, err
		}
		p.Body = body
	}

	if yp.XSS.ValueType != "" {
		switch vt := domain.ValueType(strings.TrimSpace(yp.XSS.ValueType)); vt {
		case domain.ValueParams, domain.ValueBody:
			p.XSS.ValueType = vt
		default:
			return "", domain.RequestProfile{}, invalidField(path, "xss.value_type", fmt.Sprintf("unsupported value type %q", yp.XSS.ValueType))
		}
	}
	if yp.XSS.Level != "" {
		lvl := domain.PayloadLevel(strings.ToLower(strings.TrimSpace(yp.XSS.Level)))
		if !lvl.Valid() {
			return "", domain.RequestProfile{}, invalidField(path, "xss.level", fmt.Sprintf("unsupported level %q", yp.XSS.Level))
		}
		p.XSS.PayloadLevel = lvl
	}
	p.XSS.TargetField = yp.XSS.TargetField
	p.XSS.MatchPath = strings.TrimSpace(yp.XSS.MatchPath)

	return name, p, nil
}

func mapAuth(path string, a YAMLAuth) (domain.AuthSpec, error) {
	out := domain.AuthSpec{
		Type:        domain.AuthType(strings.TrimSpace(a.Type)),
		Username:    a.Username,
		Password:    a.Password,
		Token:       a.Token,
		KeyName:     a.KeyName,
		KeyValue:    a.KeyValue,
		KeyLocation: domain.APIKeyLocation(strings.TrimSpace(a.Location)),
	}
	switch out.Type {
	case "":
		out.Type = domain.AuthNone
	case domain.AuthNone, domain.AuthBasic, domain.AuthBearer:
	case domain.AuthAPIKey:
		if strings.TrimSpace(out.KeyName) == "" {
			return domain.AuthSpec{}, invalidField(path, "auth.key_name", "key name is required for apiKey auth")
		}
		switch out.KeyLocation {
		case "", domain.APIKeyInHeader, domain.APIKeyInQuery:
		default:
			return domain.AuthSpec{}, invalidField(path, "auth.location", fmt.Sprintf("unsupported location %q", a.Location))
		}
	default:
		return domain.AuthSpec{}, invalidField(path, "auth.type", fmt.Sprintf("unsupported auth type %q", a.Type))
	}
	return out.Normalized(), nil
}

func mapBody(path string, b YAMLBody) (domain.BodySpec, error) {
	bt := domain.BodyRaw
	if strings.TrimSpace(b.Type) != "" {
		var ok bool
		bt, ok = domain.ParseBodyType(b.Type)
		if !ok {
			return domain.BodySpec{}, invalidField(path, "body.type", fmt.Sprintf("unsupported body type %q", b.Type))
		}
	}

	out := domain.BodySpec{Type: bt, Content: b.Content}
	for i, f := range b.Fields {
		if strings.TrimSpace(f.Key) == "" {
			return domain.BodySpec{}, invalidField(path, fmt.Sprintf("body.fields[%d].key", i), "field key is required")
		}
		kind := domain.FieldText
		if f.File {
			if bt != domain.BodyFormData {
				return domain.BodySpec{}, invalidField(path, fmt.Sprintf("body.fields[%d].file", i), "file fields need a form-data body")
			}
			kind = domain.FieldFile
		}
		out.Fields = append(out.Fields, domain.BodyField{Key: f.Key, Value: f.Value, Kind: kind})
	}
	return out, nil
}

// ToYAML is the inverse of MapProfile. Auth is normalized so stale
// credentials of inactive variants are not written out.
func ToYAML(name string, p domain.RequestProfile) YAMLProfile {
	out := YAMLProfile{
		Name:   name,
		Method: string(p.Method),
		URL:    p.URL,
		XSS: YAMLXSS{
			ValueType:   string(p.XSS.ValueType),
			TargetField: p.XSS.TargetField,
			Level:       string(p.XSS.PayloadLevel),
			MatchPath:   p.XSS.MatchPath,
		},
	}
	for _, h := range p.Headers {
		out.Headers = append(out.Headers, YAMLPair{Name: h.Name, Value: h.Value})
	}

	if a := p.Auth.Normalized(); a.Type != "" && a.Type != domain.AuthNone {
		out.Auth = &YAMLAuth{
			Type:     string(a.Type),
			Username: a.Username,
			Password: a.Password,
			Token:    a.Token,
			KeyName:  a.KeyName,
			KeyValue: a.KeyValue,
			Location: string(a.KeyLocation),
		}
	}

	if !p.Body.IsEmpty() || p.Body.Type != domain.BodyRaw {
		body := &YAMLBody{Type: string(p.Body.Type), Content: p.Body.Content}
		for _, f := range p.Body.Fields {
			body.Fields = append(body.Fields, YAMLBodyField{Key: f.Key, Value: f.Value, File: f.Kind == domain.FieldFile})
		}
		out.Body = body
	}
	return out
}

func invalidField(path, field, msg string) error {
	return &domain.OpError{
		Op:   "yamlprofile.map",
		Kind: domain.KindInvalidConfig,
		Path: path,
		Err:  fmt.Errorf("field %s: %s: %w", field, msg, domain.ErrInvalidConfig),
	}
}
