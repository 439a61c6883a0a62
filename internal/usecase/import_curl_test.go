package usecase

import (
	"errors"
	"testing"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

func TestImportCurl_CreatesMissingProfile(t *testing.T) {
	b := newBook(t)
	uc := NewImportCurl(b, true)

	cmd := `curl 'https://target.test/login' -H 'Authorization: Bearer abc' --data-raw 'user=a&pass=b'`
	if _, err := uc.Execute("login", cmd); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	p, err := b.Get("login")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Method != domain.MethodPost {
		t.Fatalf("expected POST from data flag, got %s", p.Method)
	}
	if p.Auth.Type != domain.AuthBearer || p.Auth.Token != "abc" {
		t.Fatalf("expected detected bearer auth, got %#v", p.Auth)
	}
	if p.Headers.Has("Authorization") {
		t.Fatalf("expected auth header moved to auth spec, got %#v", p.Headers)
	}
	if p.Body.Type != domain.BodyURLEncoded || p.Body.Field("pass") != 1 {
		t.Fatalf("unexpected body: %#v", p.Body)
	}
}

func TestImportCurl_UpdatesCurrentProfileKeepingXSSConfig(t *testing.T) {
	b := newBook(t)
	if err := b.Update(DefaultProfileName, func(p *domain.RequestProfile) error {
		p.XSS.PayloadLevel = domain.LevelAdvance
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	uc := NewImportCurl(b, false)
	if _, err := uc.Execute("", `curl https://target.test/search?q=1`); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	p, _ := b.Get(DefaultProfileName)
	if p.URL != "https://target.test/search?q=1" {
		t.Fatalf("unexpected url %q", p.URL)
	}
	if v, _ := p.Params.Get("q"); v != "1" {
		t.Fatalf("expected params synced, got %#v", p.Params)
	}
	if p.XSS.PayloadLevel != domain.LevelAdvance {
		t.Fatalf("expected xss config preserved, got %s", p.XSS.PayloadLevel)
	}
}

func TestImportCurl_RejectsNonCurl(t *testing.T) {
	uc := NewImportCurl(newBook(t), false)
	_, err := uc.Execute("", "wget https://target.test")
	if !errors.Is(err, domain.ErrNotCurl) {
		t.Fatalf("expected ErrNotCurl, got %v", err)
	}
}
