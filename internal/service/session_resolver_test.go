package service

import (
	"testing"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
)

func TestResolveIdentity_PrefersAuthenticatedUser(t *testing.T) {
	guest := NewGuestToken()
	id := ResolveIdentity(" u1 ", guest)
	if id.Kind != domain.IdentityUser || id.UserID != "u1" {
		t.Fatalf("expected user identity, got %+v", id)
	}
	if id.GuestToken != "" {
		t.Fatalf("user identity must not carry a guest token")
	}
}

func TestResolveIdentity_ReusesWellFormedGuestToken(t *testing.T) {
	token := NewGuestToken()
	id := ResolveIdentity("", token)
	if id.Kind != domain.IdentityGuest || id.GuestToken != token {
		t.Fatalf("expected guest token reuse, got %+v", id)
	}
}

func TestResolveIdentity_MintsFreshTokenWhenAbsent(t *testing.T) {
	id := ResolveIdentity("", "")
	if id.Kind != domain.IdentityGuest || id.GuestToken == "" {
		t.Fatalf("expected fresh guest identity, got %+v", id)
	}
	if !IsGuestToken(id.GuestToken) {
		t.Fatalf("minted token should be well formed: %q", id.GuestToken)
	}
}

func TestResolveIdentity_MalformedTokenBecomesFreshGuest(t *testing.T) {
	cases := []string{"short", "not base64 !!!", "YWJj"}
	for _, tok := range cases {
		id := ResolveIdentity("", tok)
		if id.Kind != domain.IdentityGuest {
			t.Fatalf("token %q: expected guest identity", tok)
		}
		if id.GuestToken == tok {
			t.Fatalf("token %q: malformed token must not be reused", tok)
		}
		if !IsGuestToken(id.GuestToken) {
			t.Fatalf("token %q: replacement token malformed", tok)
		}
	}
}

func TestNewGuestToken_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := NewGuestToken()
		if seen[tok] {
			t.Fatalf("duplicate token generated: %q", tok)
		}
		seen[tok] = true
	}
}
