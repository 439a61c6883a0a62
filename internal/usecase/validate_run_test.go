package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

func TestValidateRun_OK(t *testing.T) {
	target, err := ValidateRun(searchProfile("https://target.test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Name != "q" || target.Kind != domain.TargetParam {
		t.Fatalf("unexpected target: %#v", target)
	}
}

func TestValidateRun_CollectsEveryProblem(t *testing.T) {
	p := domain.NewProfile()
	p.URL = "not a url"
	p.Method = domain.MethodPatch
	p.XSS.PayloadLevel = "extreme"

	_, err := ValidateRun(p)
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	want := []string{"URL", "Request Body", "Target Field", "Payload Level"}
	if len(ve.Missing) != len(want) {
		t.Fatalf("expected %v, got %v", want, ve.Missing)
	}
	for i, w := range want {
		if ve.Missing[i] != w {
			t.Fatalf("missing[%d]: expected %q, got %q", i, w, ve.Missing[i])
		}
	}
}

func TestValidateRun_UnknownTargetSuggestsClosest(t *testing.T) {
	p := searchProfile("https://target.test")
	p.XSS.TargetField = "qq"

	_, err := ValidateRun(p)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), `"qq" not found in params`) || !strings.Contains(err.Error(), `did you mean "q"?`) {
		t.Fatalf("expected suggestion in error, got %v", err)
	}
}

func TestValidateRun_BodyTargetRequiresBodyField(t *testing.T) {
	p := domain.NewProfile()
	p.Method = domain.MethodPost
	p.URL = "https://target.test/login?next=/"
	_ = p.SyncParams()
	p.Body = domain.BodySpec{Type: domain.BodyURLEncoded, Fields: []domain.BodyField{{Key: "user", Value: "a", Kind: domain.FieldText}}}
	p.XSS.ValueType = domain.ValueBody

	// A query param is not a body field.
	p.XSS.TargetField = "next"
	if _, err := ValidateRun(p); err == nil {
		t.Fatalf("expected param name rejected for body value type")
	}

	p.XSS.TargetField = "user"
	target, err := ValidateRun(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Kind != domain.TargetURLEncoded {
		t.Fatalf("expected urlencoded target, got %s", target.Kind)
	}
}

func TestValidateRun_URLEncodedContentTarget(t *testing.T) {
	p := domain.NewProfile()
	p.Method = domain.MethodPost
	p.URL = "https://target.test/form"
	p.Body = domain.BodySpec{Type: domain.BodyURLEncoded, Content: "a=1&b=2"}
	p.XSS = domain.XSSConfig{ValueType: domain.ValueBody, TargetField: "a", PayloadLevel: domain.LevelBasic}

	target, err := ValidateRun(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Name != "a" || target.Kind != domain.TargetURLEncoded {
		t.Fatalf("unexpected target: %+v", target)
	}
}
