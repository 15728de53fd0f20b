package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

func newTestManager() *Manager {
	return NewManager(NewMemoryStore(), testSigningKey, false)
}

func requestWithCookies(recorder *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest("GET", "/checkout/order", nil)
	for _, cookie := range recorder.Result().Cookies() {
		r.AddCookie(cookie)
	}
	return r
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newTestManager()
	w := httptest.NewRecorder()

	sessionID, err := m.CreateSession(ctx, w, &Data{OrderToken: "order-token-1"})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("expected non-empty session ID")
	}

	gotID, data, err := m.GetSession(ctx, requestWithCookies(w))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if gotID != sessionID {
		t.Fatalf("expected session ID %s, got %s", sessionID, gotID)
	}
	if data.OrderToken != "order-token-1" {
		t.Fatalf("expected order token preserved, got %q", data.OrderToken)
	}
	if data.CreatedAt == 0 {
		t.Fatalf("expected CreatedAt stamped on creation")
	}
}

func TestGetSessionRejectsForgedCookie(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newTestManager()
	w := httptest.NewRecorder()
	if _, err := m.CreateSession(ctx, w, &Data{}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	// A token signed under a different key must be rejected before any
	// store lookup.
	other := NewManager(NewMemoryStore(), "ffffffffffffffffffffffffffffffff", false)
	forged := httptest.NewRecorder()
	if _, err := other.CreateSession(ctx, forged, &Data{}); err != nil {
		t.Fatalf("create forged session: %v", err)
	}

	if _, _, err := m.GetSession(ctx, requestWithCookies(forged)); err == nil {
		t.Fatalf("expected forged cookie to be rejected")
	}
}

func TestGetSessionRejectsGarbageCookie(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newTestManager()
	r := httptest.NewRequest("GET", "/checkout/order", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: "not-a-token"})

	if _, _, err := m.GetSession(ctx, r); err == nil {
		t.Fatalf("expected garbage cookie to be rejected")
	}
}

func TestEnsureSessionCreatesOnFirstContact(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newTestManager()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/checkout/order", nil)

	sessionID, data, err := m.EnsureSession(ctx, w, r)
	if err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if sessionID == "" || data == nil {
		t.Fatalf("expected fresh session, got id=%q data=%v", sessionID, data)
	}
	if len(w.Result().Cookies()) == 0 {
		t.Fatalf("expected session cookie set on first contact")
	}
}

func TestUpdateSessionKeepsID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newTestManager()
	w := httptest.NewRecorder()

	sessionID, err := m.CreateSession(ctx, w, &Data{})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := m.UpdateSession(ctx, sessionID, &Data{OrderToken: "rotated-token", LastOrderCode: "HV1001"}); err != nil {
		t.Fatalf("update session: %v", err)
	}

	_, data, err := m.GetSession(ctx, requestWithCookies(w))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if data.OrderToken != "rotated-token" || data.LastOrderCode != "HV1001" {
		t.Fatalf("expected updated data, got %+v", data)
	}
}

func TestDestroySessionClearsStoreAndCookie(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newTestManager()
	w := httptest.NewRecorder()
	if _, err := m.CreateSession(ctx, w, &Data{}); err != nil {
		t.Fatalf("create session: %v", err)
	}

	r := requestWithCookies(w)
	destroy := httptest.NewRecorder()
	if err := m.DestroySession(ctx, destroy, r); err != nil {
		t.Fatalf("destroy session: %v", err)
	}

	if _, _, err := m.GetSession(ctx, r); err == nil {
		t.Fatalf("expected session gone after destroy")
	}

	cookies := destroy.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("expected expired cookie, got %+v", cookies)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryStore()
	store.Set(ctx, "sid", &Data{OrderToken: "tok"}, -time.Second)

	if _, ok := store.Get(ctx, "sid"); ok {
		t.Fatalf("expected expired entry to be gone")
	}
}

func TestNewStoreProviders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		provider string
		wantErr  bool
	}{
		{name: "memory", provider: "memory"},
		{name: "default is memory", provider: ""},
		{name: "unknown provider", provider: "etcd", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store, err := NewStore(ctx, Config{Provider: tt.provider})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for provider %q", tt.provider)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if store == nil {
				t.Fatalf("expected store")
			}
		})
	}
}
