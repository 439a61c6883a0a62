package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

type editFlags struct {
	method string
	url    string

	headers       []string
	removeHeaders []string
	params        []string
	removeParams  []string

	authType    string
	username    string
	password    string
	token       string
	keyName     string
	keyValue    string
	keyLocation string

	bodyType   string
	body       string
	fields     []string
	fileFields []string
	clearBody  bool

	valueType string
	target    string
	level     string
	matchPath string
}

func editCmd(g *globalFlags) *cobra.Command {
	var profile string
	e := &editFlags{}

	c := &cobra.Command{
		Use:   "edit",
		Short: "Edit the request and test settings of a profile",
		Example: "  xssprobe edit --url 'https://target.test/search?q=x' --target q\n" +
			"  xssprobe edit -X POST --body-type urlencoded --field user=a --value-type body --target user\n" +
			"  xssprobe edit --auth bearer --token abc --level advance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			name, _, err := ws.book.Resolve(profile)
			if err != nil {
				return err
			}
			if err := ws.book.Update(name, func(p *domain.RequestProfile) error {
				return applyEdits(p, e, cmd.Flags().Changed)
			}); err != nil {
				return err
			}

			p, err := ws.book.Get(name)
			if err != nil {
				return err
			}
			cur, _, _ := ws.book.Current()
			printProfile(cmd.OutOrStdout(), name, name == cur, p)
			return nil
		},
	}

	f := c.Flags()
	f.StringVarP(&profile, "profile", "p", "", "profile to edit (default: current)")
	f.StringVarP(&e.method, "method", "X", "", "HTTP method")
	f.StringVar(&e.url, "url", "", "request URL (query becomes params)")
	f.StringArrayVarP(&e.headers, "header", "H", nil, "set header 'Name: value' (replaces same-name headers)")
	f.StringArrayVar(&e.removeHeaders, "remove-header", nil, "remove header by name")
	f.StringArrayVar(&e.params, "param", nil, "set query param key=value")
	f.StringArrayVar(&e.removeParams, "remove-param", nil, "remove query param by key")

	f.StringVar(&e.authType, "auth", "", "auth type: none|basic|bearer|apiKey")
	f.StringVar(&e.username, "username", "", "basic auth username")
	f.StringVar(&e.password, "password", "", "basic auth password")
	f.StringVar(&e.token, "token", "", "bearer token")
	f.StringVar(&e.keyName, "key-name", "", "API key name")
	f.StringVar(&e.keyValue, "key-value", "", "API key value")
	f.StringVar(&e.keyLocation, "key-in", "", "API key location: header|query")

	f.StringVar(&e.bodyType, "body-type", "", "body type: raw|form-data|urlencoded")
	f.StringVarP(&e.body, "body", "d", "", "raw body content")
	f.StringArrayVar(&e.fields, "field", nil, "set body field key=value")
	f.StringArrayVar(&e.fileFields, "file-field", nil, "set form-data file field key=path")
	f.BoolVar(&e.clearBody, "clear-body", false, "remove body content and fields")

	f.StringVar(&e.valueType, "value-type", "", "where the target lives: params|body")
	f.StringVarP(&e.target, "target", "t", "", "target field name")
	f.StringVarP(&e.level, "level", "l", "", "payload level: basic|medium|advance")
	f.StringVar(&e.matchPath, "match-path", "", "JSONPath that narrows matching in JSON responses ('-' clears)")
	return c
}

// applyEdits mutates p with every flag that changed reports as set.
func applyEdits(p *domain.RequestProfile, e *editFlags, changed func(string) bool) error {
	if changed("method") {
		m, ok := domain.ParseMethod(e.method)
		if !ok {
			return fmt.Errorf("unsupported method %q", e.method)
		}
		p.Method = m
	}
	if changed("url") {
		p.URL = strings.TrimSpace(e.url)
		// An unparsable URL is kept; the run check reports it.
		_ = p.SyncParams()
	}

	for _, raw := range e.headers {
		name, value, ok := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return fmt.Errorf("invalid header %q (expected 'Name: value')", raw)
		}
		p.Headers = append(p.Headers.Del(name), domain.Header{Name: name, Value: strings.TrimSpace(value)})
	}
	for _, name := range e.removeHeaders {
		p.Headers = p.Headers.Del(name)
	}

	if len(e.params) > 0 || len(e.removeParams) > 0 {
		for _, raw := range e.params {
			k, v, err := splitPair(raw)
			if err != nil {
				return err
			}
			p.Params = setParam(p.Params, k, v)
		}
		for _, k := range e.removeParams {
			p.Params = removeParam(p.Params, k)
		}
		if err := p.ApplyParams(); err != nil {
			return err
		}
	}

	if err := applyAuthEdits(&p.Auth, e, changed); err != nil {
		return err
	}
	if err := applyBodyEdits(&p.Body, e, changed); err != nil {
		return err
	}

	if changed("value-type") {
		switch vt := domain.ValueType(strings.ToLower(strings.TrimSpace(e.valueType))); vt {
		case domain.ValueParams, domain.ValueBody:
			p.XSS.ValueType = vt
		default:
			return fmt.Errorf("unsupported value type %q (expected params|body)", e.valueType)
		}
	}
	if changed("target") {
		p.XSS.TargetField = strings.TrimSpace(e.target)
	}
	if changed("level") {
		lvl := domain.PayloadLevel(strings.ToLower(strings.TrimSpace(e.level)))
		if !lvl.Valid() {
			return fmt.Errorf("%w: %q", domain.ErrUnknownLevel, e.level)
		}
		p.XSS.PayloadLevel = lvl
	}
	if changed("match-path") {
		p.XSS.MatchPath = strings.TrimSpace(e.matchPath)
		if p.XSS.MatchPath == "-" {
			p.XSS.MatchPath = ""
		}
	}
	return nil
}

func applyAuthEdits(a *domain.AuthSpec, e *editFlags, changed func(string) bool) error {
	if changed("auth") {
		t := domain.AuthType(strings.TrimSpace(e.authType))
		if strings.EqualFold(string(t), string(domain.AuthAPIKey)) {
			t = domain.AuthAPIKey
		}
		switch t {
		case domain.AuthNone, domain.AuthBasic, domain.AuthBearer, domain.AuthAPIKey:
			a.Type = t
		default:
			return fmt.Errorf("unsupported auth type %q (expected none|basic|bearer|apiKey)", e.authType)
		}
	}
	// Variant fields are kept even when inactive so switching back restores them.
	if changed("username") {
		a.Username = e.username
	}
	if changed("password") {
		a.Password = e.password
	}
	if changed("token") {
		a.Token = e.token
	}
	if changed("key-name") {
		a.KeyName = e.keyName
	}
	if changed("key-value") {
		a.KeyValue = e.keyValue
	}
	if changed("key-in") {
		switch loc := domain.APIKeyLocation(strings.ToLower(strings.TrimSpace(e.keyLocation))); loc {
		case domain.APIKeyInHeader, domain.APIKeyInQuery:
			a.KeyLocation = loc
		default:
			return fmt.Errorf("unsupported API key location %q (expected header|query)", e.keyLocation)
		}
	}
	return nil
}

func applyBodyEdits(b *domain.BodySpec, e *editFlags, changed func(string) bool) error {
	if e.clearBody {
		b.Content = ""
		b.Fields = nil
	}
	if changed("body-type") {
		bt, ok := domain.ParseBodyType(e.bodyType)
		if !ok {
			return fmt.Errorf("unsupported body type %q (expected raw|form-data|urlencoded)", e.bodyType)
		}
		b.Type = bt
	}
	if changed("body") {
		b.Content = e.body
	}

	for _, raw := range e.fields {
		k, v, err := splitPair(raw)
		if err != nil {
			return err
		}
		setField(b, domain.BodyField{Key: k, Value: v, Kind: domain.FieldText})
	}
	for _, raw := range e.fileFields {
		if b.Type != domain.BodyFormData {
			return fmt.Errorf("file fields need --body-type form-data")
		}
		k, v, err := splitPair(raw)
		if err != nil {
			return err
		}
		setField(b, domain.BodyField{Key: k, Value: v, Kind: domain.FieldFile})
	}
	return nil
}

func setField(b *domain.BodySpec, f domain.BodyField) {
	if i := b.Field(f.Key); i >= 0 {
		b.Fields[i] = f
		return
	}
	b.Fields = append(b.Fields, f)
}

func setParam(ps domain.Params, k, v string) domain.Params {
	for i := range ps {
		if ps[i].Key == k {
			ps[i].Value = v
			return ps
		}
	}
	return append(ps, domain.Param{Key: k, Value: v})
}

func removeParam(ps domain.Params, k string) domain.Params {
	out := ps[:0]
	for _, p := range ps {
		if p.Key != k {
			out = append(out, p)
		}
	}
	return out
}

func splitPair(raw string) (string, string, error) {
	k, v, ok := strings.Cut(raw, "=")
	k = strings.TrimSpace(k)
	if !ok || k == "" {
		return "", "", fmt.Errorf("invalid pair %q (expected key=value)", raw)
	}
	return k, v, nil
}
