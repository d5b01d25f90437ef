package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestTokenRevokers(t *testing.T) {
	srv := miniredis.RunT(t)
	revokers := map[string]TokenRevoker{
		"memory": NewMemoryTokenRevoker(),
		"redis":  NewRedisTokenRevoker(srv.Addr(), ""),
	}
	for name, r := range revokers {
		t.Run(name, func(t *testing.T) {
			if revoked, err := r.IsRevoked("jti-1"); err != nil || revoked {
				t.Fatalf("fresh id revoked=%v err=%v", revoked, err)
			}
			if err := r.Revoke("jti-1", time.Minute); err != nil {
				t.Fatalf("revoke: %v", err)
			}
			if revoked, err := r.IsRevoked("jti-1"); err != nil || !revoked {
				t.Fatalf("revoked=%v err=%v", revoked, err)
			}
			if err := r.Revoke("jti-2", 0); err != nil {
				t.Fatalf("zero ttl revoke: %v", err)
			}
			if revoked, _ := r.IsRevoked("jti-2"); revoked {
				t.Fatalf("zero ttl should be a no-op")
			}
		})
	}
}

func TestMemoryTokenRevokerExpires(t *testing.T) {
	r := NewMemoryTokenRevoker()
	if err := r.Revoke("jti", time.Millisecond); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if revoked, _ := r.IsRevoked("jti"); revoked {
		t.Fatalf("entry should have expired")
	}
}
