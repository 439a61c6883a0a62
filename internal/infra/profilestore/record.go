package profilestore

import (
	"encoding/json"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// record is the persisted shape of a profile. Auth is normalized so inactive
// variant fields are never written.
type record struct {
	Method  string       `json:"method"`
	URL     string       `json:"url"`
	Headers []headerRec  `json:"headers"`
	Params  []paramRec   `json:"params"`
	Auth    authRec      `json:"auth"`
	Body    bodyRec      `json:"body"`
	XSS     xssConfigRec `json:"xssConfig"`
}

type headerRec struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type paramRec struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type authRec struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`
	AddTo    string `json:"addTo,omitempty"`
}

type bodyRec struct {
	Type    string     `json:"type"`
	Content string     `json:"content,omitempty"`
	Fields  []fieldRec `json:"fields,omitempty"`
}

type fieldRec struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

type xssConfigRec struct {
	ValueType    string `json:"valueType"`
	TargetField  string `json:"targetField"`
	PayloadLevel string `json:"payloadLevel"`
	MatchPath    string `json:"matchPath,omitempty"`
}

func encode(p domain.RequestProfile) ([]byte, error) {
	a := p.Auth.Normalized()
	r := record{
		Method:  string(p.Method),
		URL:     p.URL,
		Headers: make([]headerRec, 0, len(p.Headers)),
		Params:  make([]paramRec, 0, len(p.Params)),
		Auth: authRec{
			Type:     string(a.Type),
			Username: a.Username,
			Password: a.Password,
			Token:    a.Token,
			Key:      a.KeyName,
			Value:    a.KeyValue,
			AddTo:    string(a.KeyLocation),
		},
		Body: bodyRec{Type: string(p.Body.Type), Content: p.Body.Content},
		XSS: xssConfigRec{
			ValueType:    string(p.XSS.ValueType),
			TargetField:  p.XSS.TargetField,
			PayloadLevel: string(p.XSS.PayloadLevel),
			MatchPath:    p.XSS.MatchPath,
		},
	}
	for _, h := range p.Headers {
		r.Headers = append(r.Headers, headerRec{Name: h.Name, Value: h.Value})
	}
	for _, prm := range p.Params {
		r.Params = append(r.Params, paramRec{Key: prm.Key, Value: prm.Value})
	}
	for _, f := range p.Body.Fields {
		r.Body.Fields = append(r.Body.Fields, fieldRec{Key: f.Key, Value: f.Value, Type: string(f.Kind)})
	}
	return json.Marshal(r)
}

func decode(b []byte) (domain.RequestProfile, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return domain.RequestProfile{}, err
	}

	p := domain.NewProfile()
	if m, ok := domain.ParseMethod(r.Method); ok {
		p.Method = m
	}
	p.URL = r.URL
	for _, h := range r.Headers {
		p.Headers = append(p.Headers, domain.Header{Name: h.Name, Value: h.Value})
	}
	for _, prm := range r.Params {
		p.Params = append(p.Params, domain.Param{Key: prm.Key, Value: prm.Value})
	}
	p.Auth = domain.AuthSpec{
		Type:        domain.AuthType(r.Auth.Type),
		Username:    r.Auth.Username,
		Password:    r.Auth.Password,
		Token:       r.Auth.Token,
		KeyName:     r.Auth.Key,
		KeyValue:    r.Auth.Value,
		KeyLocation: domain.APIKeyLocation(r.Auth.AddTo),
	}.Normalized()
	if bt, ok := domain.ParseBodyType(r.Body.Type); ok {
		p.Body.Type = bt
	}
	p.Body.Content = r.Body.Content
	for _, f := range r.Body.Fields {
		kind := domain.FieldText
		if f.Type == string(domain.FieldFile) {
			kind = domain.FieldFile
		}
		p.Body.Fields = append(p.Body.Fields, domain.BodyField{Key: f.Key, Value: f.Value, Kind: kind})
	}
	if r.XSS.ValueType != "" {
		p.XSS.ValueType = domain.ValueType(r.XSS.ValueType)
	}
	p.XSS.TargetField = r.XSS.TargetField
	if r.XSS.PayloadLevel != "" {
		p.XSS.PayloadLevel = domain.PayloadLevel(r.XSS.PayloadLevel)
	}
	p.XSS.MatchPath = r.XSS.MatchPath
	return p, nil
}
