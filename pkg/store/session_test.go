package store

import (
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTSessionStoreLifecycle(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	s, err := NewJWTSessionStore(testSecret, time.Hour, revoker, JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := s.NewSession("officer@mail.gov.in")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact jwt, got %q", token)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || uid != "officer@mail.gov.in" {
		t.Fatalf("lookup = (%q, %v, %v)", uid, ok, err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("revoked token still valid")
	}
}

func TestJWTSessionStoreRejectsForeignAndExpiredTokens(t *testing.T) {
	s, _ := NewJWTSessionStore(testSecret, time.Minute, nil, JWTOptions{})
	other, _ := NewJWTSessionStore(strings.Repeat("z", 32), time.Minute, nil, JWTOptions{})
	foreign, _ := other.NewSession("user@mail.in")
	if _, ok, _ := s.GetUserIDByToken(foreign); ok {
		t.Fatalf("token signed with another secret accepted")
	}

	wrongAud, _ := NewJWTSessionStore(testSecret, time.Minute, nil, JWTOptions{Audience: "elsewhere"})
	tok, _ := wrongAud.NewSession("user@mail.in")
	if _, ok, _ := s.GetUserIDByToken(tok); ok {
		t.Fatalf("token for another audience accepted")
	}

	past := time.Now().Add(-time.Hour)
	s.now = func() time.Time { return past }
	old, _ := s.NewSession("user@mail.in")
	s.now = time.Now
	if _, ok, _ := s.GetUserIDByToken(old); ok {
		t.Fatalf("expired token accepted")
	}
	if _, ok, _ := s.GetUserIDByToken("garbage"); ok {
		t.Fatalf("garbage accepted")
	}
}

func TestNewJWTSessionStoreValidates(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Hour, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected short secret error")
	}
	if _, err := NewJWTSessionStore(testSecret, 0, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected ttl error")
	}
}

func TestRedisSessionStore(t *testing.T) {
	srv := miniredis.RunT(t)
	s := NewRedisSessionStore(srv.Addr(), "", time.Minute)
	token, err := s.NewSession("user@mail.in")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if uid, ok, err := s.GetUserIDByToken(token); err != nil || !ok || uid != "user@mail.in" {
		t.Fatalf("lookup = (%q, %v, %v)", uid, ok, err)
	}
	srv.FastForward(2 * time.Minute)
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("session survived its ttl")
	}
	token, _ = s.NewSession("user@mail.in")
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("deleted session still valid")
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	s := NewMemorySessionStore(time.Minute)
	now := time.Now()
	s.nowFn = func() time.Time { return now }
	token, _ := s.NewSession("user@mail.in")
	if _, ok, _ := s.GetUserIDByToken(token); !ok {
		t.Fatalf("fresh session missing")
	}
	s.nowFn = func() time.Time { return now.Add(2 * time.Minute) }
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("expired session still valid")
	}
}
