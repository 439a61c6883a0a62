package fields

import (
	"testing"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

func names(fs []domain.TargetField) []string {
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, f.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEnumerateJSONLeavesInDocumentOrder(t *testing.T) {
	p := domain.NewProfile()
	p.Method = domain.MethodPost
	p.Body = domain.BodySpec{Type: domain.BodyRaw, Content: `{"a":{"b":1},"c":2}`}

	got := names(Enumerate(p))
	if !equal(got, []string{"a.b", "c"}) {
		t.Fatalf("got %v", got)
	}
}

func TestEnumerateArraysAreLeaves(t *testing.T) {
	p := domain.NewProfile()
	p.Body = domain.BodySpec{Type: domain.BodyRaw, Content: `{"z":[1,{"x":2}],"a":{"y":{"k":"v"}}}`}

	got := names(Enumerate(p))
	if !equal(got, []string{"z", "a.y.k"}) {
		t.Fatalf("got %v", got)
	}
}

func TestEnumerateParamsFirst(t *testing.T) {
	p := domain.NewProfile()
	p.Params = domain.Params{{Key: "q", Value: "1"}, {Key: "page", Value: "2"}}
	p.Body = domain.BodySpec{Type: domain.BodyRaw, Content: `{"c":2}`}

	fs := Enumerate(p)
	if !equal(names(fs), []string{"q", "page", "c"}) {
		t.Fatalf("got %v", names(fs))
	}
	if fs[0].Kind != domain.TargetParam || fs[2].Kind != domain.TargetJSON {
		t.Fatalf("unexpected kinds: %+v", fs)
	}
}

func TestEnumerateNonJSONRawBody(t *testing.T) {
	p := domain.NewProfile()
	p.Body = domain.BodySpec{Type: domain.BodyRaw, Content: "hello"}

	fs := Enumerate(p)
	if len(fs) != 1 || fs[0].Name != domain.RawBodyField || fs[0].Kind != domain.TargetRaw {
		t.Fatalf("expected synthetic body field, got %+v", fs)
	}
}

func TestEnumerateFormSkipsFiles(t *testing.T) {
	p := domain.NewProfile()
	p.Body = domain.BodySpec{Type: domain.BodyFormData, Fields: []domain.BodyField{
		{Key: "title", Value: "x", Kind: domain.FieldText},
		{Key: "doc", Value: "/tmp/a", Kind: domain.FieldFile},
	}}

	fs := Enumerate(p)
	if len(fs) != 1 || fs[0].Name != "title" || fs[0].Kind != domain.TargetFormData {
		t.Fatalf("got %+v", fs)
	}
}

func TestEnumerateDoesNotMutate(t *testing.T) {
	p := domain.NewProfile()
	p.Body = domain.BodySpec{Type: domain.BodyRaw, Content: `{"a":1}`}
	before := p.Clone()

	_ = Enumerate(p)
	if p.Body.Content != before.Body.Content {
		t.Fatalf("profile mutated")
	}
}

func TestResolveAndSuggest(t *testing.T) {
	p := domain.NewProfile()
	p.Params = domain.Params{{Key: "search", Value: "1"}}
	p.Body = domain.BodySpec{Type: domain.BodyRaw, Content: `{"search":1}`}

	f, ok := Resolve(p, domain.ValueBody, "search")
	if !ok || f.Kind != domain.TargetJSON {
		t.Fatalf("expected json target, got %+v %v", f, ok)
	}
	if _, ok := Resolve(p, domain.ValueParams, "missing"); ok {
		t.Fatalf("did not expect a match")
	}
	if got := Suggest(p, domain.ValueParams, "serch"); got != "search" {
		t.Fatalf("expected suggestion, got %q", got)
	}
	if got := Suggest(p, domain.ValueParams, "zzzzzzzzzz"); got != "" {
		t.Fatalf("expected no suggestion, got %q", got)
	}
}

func TestEnumerateURLEncodedContentWithoutFields(t *testing.T) {
	p := domain.NewProfile()
	p.Method = domain.MethodPost
	p.Body = domain.BodySpec{Type: domain.BodyURLEncoded, Content: "a=1&b=%3Cx%3E"}

	fs := Enumerate(p)
	if !equal(names(fs), []string{"a", "b"}) {
		t.Fatalf("got %v", names(fs))
	}
	if fs[0].Kind != domain.TargetURLEncoded {
		t.Fatalf("expected urlencoded kind, got %s", fs[0].Kind)
	}
	if len(p.Body.Fields) != 0 {
		t.Fatalf("enumeration mutated the body: %+v", p.Body)
	}
}
