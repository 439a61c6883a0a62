package domain

import "strings"

// HTTPMethod represents an HTTP method (e.g., GET, POST).
type HTTPMethod string

const (
	MethodGet     HTTPMethod = "GET"
	MethodPost    HTTPMethod = "POST"
	MethodPut     HTTPMethod = "PUT"
	MethodPatch   HTTPMethod = "PATCH"
	MethodDelete  HTTPMethod = "DELETE"
	MethodHead    HTTPMethod = "HEAD"
	MethodOptions HTTPMethod = "OPTIONS"
)

var methods = []HTTPMethod{
	MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions,
}

// Methods returns the supported methods in display order.
func Methods() []HTTPMethod {
	out := make([]HTTPMethod, len(methods))
	copy(out, methods)
	return out
}

// ParseMethod normalizes s and reports whether it names a supported method.
func ParseMethod(s string) (HTTPMethod, bool) {
	m := HTTPMethod(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// CarriesBody reports whether requests with this method send the profile body.
func (m HTTPMethod) CarriesBody() bool {
	return m == MethodPost || m == MethodPut || m == MethodPatch
}

// Header is a single request header. Names keep their original casing.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header list; duplicates are allowed and sent repeatedly.
type Headers []Header

// Get returns the first value for name (case-insensitive).
func (h Headers) Get(name string) (string, bool) {
	for _, hd := range h {
		if strings.EqualFold(hd.Name, name) {
			return hd.Value, true
		}
	}
	return "", false
}

func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Del returns h without any header called name (case-insensitive).
func (h Headers) Del(name string) Headers {
	out := make(Headers, 0, len(h))
	for _, hd := range h {
		if !strings.EqualFold(hd.Name, name) {
			out = append(out, hd)
		}
	}
	return out
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}

// Param is one URL query parameter.
type Param struct {
	Key   string
	Value string
}

// Params mirrors the URL query string in order.
type Params []Param

func (p Params) Get(key string) (string, bool) {
	for _, pr := range p {
		if pr.Key == key {
			return pr.Value, true
		}
	}
	return "", false
}

func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// AuthType tags the active authentication variant.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthBasic  AuthType = "basic"
	AuthBearer AuthType = "bearer"
	AuthAPIKey AuthType = "apiKey"
)

// APIKeyLocation says where an API key is attached.
type APIKeyLocation string

const (
	APIKeyInHeader APIKeyLocation = "header"
	APIKeyInQuery  APIKeyLocation = "query"
)

// AuthSpec holds the fields of every auth variant so editors can switch
// between them without losing input. Only the fields of Type are applied.
type AuthSpec struct {
	Type AuthType

	Username string
	Password string

	Token string

	KeyName     string
	KeyValue    string
	KeyLocation APIKeyLocation
}

// Normalized keeps only the fields of the active variant.
func (a AuthSpec) Normalized() AuthSpec {
	switch a.Type {
	case AuthBasic:
		return AuthSpec{Type: AuthBasic, Username: a.Username, Password: a.Password}
	case AuthBearer:
		return AuthSpec{Type: AuthBearer, Token: a.Token}
	case AuthAPIKey:
		loc := a.KeyLocation
		if loc != APIKeyInQuery {
			loc = APIKeyInHeader
		}
		return AuthSpec{Type: AuthAPIKey, KeyName: a.KeyName, KeyValue: a.KeyValue, KeyLocation: loc}
	default:
		return AuthSpec{Type: AuthNone}
	}
}

// BodyType is the editing mode of the request body.
type BodyType string

const (
	BodyRaw        BodyType = "raw"
	BodyFormData   BodyType = "form-data"
	BodyURLEncoded BodyType = "x-www-form-urlencoded"
)

// ParseBodyType accepts the canonical names plus a few short aliases.
func ParseBodyType(s string) (BodyType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw", "json", "text":
		return BodyRaw, true
	case "form-data", "formdata", "multipart":
		return BodyFormData, true
	case "x-www-form-urlencoded", "urlencoded", "form":
		return BodyURLEncoded, true
	}
	return "", false
}

// FieldKind distinguishes text form fields from file uploads.
type FieldKind string

const (
	FieldText FieldKind = "text"
	FieldFile FieldKind = "file"
)

// BodyField is one keyed entry of a form body. For file fields Value is a local path.
type BodyField struct {
	Key   string
	Value string
	Kind  FieldKind
}

// BodySpec describes the request body.
// Raw bodies use Content; keyed bodies use Fields.
type BodySpec struct {
	Type    BodyType
	Content string
	Fields  []BodyField
}

// IsEmpty reports whether the body has nothing to send for its type.
func (b BodySpec) IsEmpty() bool {
	switch b.Type {
	case BodyFormData, BodyURLEncoded:
		return len(b.Fields) == 0 && strings.TrimSpace(b.Content) == ""
	default:
		return strings.TrimSpace(b.Content) == ""
	}
}

// Field returns the index of the first field named key, or -1.
func (b BodySpec) Field(key string) int {
	for i, f := range b.Fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

func (b BodySpec) Clone() BodySpec {
	out := b
	if b.Fields != nil {
		out.Fields = make([]BodyField, len(b.Fields))
		copy(out.Fields, b.Fields)
	}
	return out
}

// ValueType selects which part of the request holds the injection target.
type ValueType string

const (
	ValueParams ValueType = "params"
	ValueBody   ValueType = "body"
)

// PayloadLevel names one of the bundled wordlists.
type PayloadLevel string

const (
	LevelBasic   PayloadLevel = "basic"
	LevelMedium  PayloadLevel = "medium"
	LevelAdvance PayloadLevel = "advance"
)

// PayloadLevels returns the known levels in increasing size.
func PayloadLevels() []PayloadLevel {
	return []PayloadLevel{LevelBasic, LevelMedium, LevelAdvance}
}

func (l PayloadLevel) Valid() bool {
	switch l {
	case LevelBasic, LevelMedium, LevelAdvance:
		return true
	}
	return false
}

// XSSConfig selects the target field and wordlist of a test run.
type XSSConfig struct {
	ValueType    ValueType
	TargetField  string
	PayloadLevel PayloadLevel

	// MatchPath optionally narrows matching to a JSONPath sub-tree of a JSON response.
	MatchPath string
}

// RequestProfile is one editable HTTP request plus its test configuration.
// Names live in the profile collection, not on the value.
type RequestProfile struct {
	Method  HTTPMethod
	URL     string
	Headers Headers
	Params  Params
	Auth    AuthSpec
	Body    BodySpec
	XSS     XSSConfig
}

// NewProfile returns the profile used when seeding a collection.
func NewProfile() RequestProfile {
	return RequestProfile{
		Method:  MethodGet,
		Headers: Headers{},
		Params:  Params{},
		Auth:    AuthSpec{Type: AuthNone, KeyLocation: APIKeyInHeader},
		Body:    BodySpec{Type: BodyRaw},
		XSS: XSSConfig{
			ValueType:    ValueParams,
			PayloadLevel: LevelBasic,
		},
	}
}

// Clone returns a deep copy; mutating the copy never affects p.
func (p RequestProfile) Clone() RequestProfile {
	out := p
	out.Headers = p.Headers.Clone()
	out.Params = p.Params.Clone()
	out.Body = p.Body.Clone()
	return out
}

// SyncParams rebuilds Params from URL. An unparsable URL leaves Params empty.
func (p *RequestProfile) SyncParams() error {
	ps, err := ParamsFromURL(p.URL)
	if err != nil {
		p.Params = Params{}
		return err
	}
	p.Params = ps
	return nil
}

// ApplyParams rewrites URL's query from Params.
func (p *RequestProfile) ApplyParams() error {
	u, err := URLWithParams(p.URL, p.Params)
	if err != nil {
		return err
	}
	p.URL = u
	return nil
}
