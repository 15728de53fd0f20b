// Package session ties a browser to its cart and checkout progress.
package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	cookieName = "hvacdirect_session"
	ttl        = 24 * time.Hour
)

// Data is what a session stores: the order service token for the cart's
// server-held order and the code of the most recently completed order.
type Data struct {
	OrderToken    string `json:"order_token"`
	LastOrderCode string `json:"last_order_code"`
	CreatedAt     int64  `json:"created_at"`
}

// Manager handles session creation, validation, and storage. The cookie
// value is a signed token wrapping the session ID, so a forged cookie is
// rejected without touching the store.
type Manager struct {
	store      Store
	signingKey []byte
	secure     bool
}

// Store defines the interface for session storage.
type Store interface {
	Get(ctx context.Context, key string) (*Data, bool)
	Set(ctx context.Context, key string, data *Data, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Close() error
}

func NewManager(store Store, signingKey string, secure bool) *Manager {
	return &Manager{
		store:      store,
		signingKey: []byte(signingKey),
		secure:     secure,
	}
}

func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.Close()
}

// CreateSession creates a new session and sets the cookie. It returns the
// session ID, which doubles as the cart token.
func (m *Manager) CreateSession(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	if ctx == nil {
		return "", fmt.Errorf("context is required")
	}
	if data == nil {
		data = &Data{}
	}

	sessionID := uuid.NewString()

	sessionData := cloneData(data)
	sessionData.CreatedAt = time.Now().Unix()
	m.store.Set(ctx, sessionID, sessionData, ttl)

	signed, err := m.signSessionID(sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return sessionID, nil
}

// GetSession retrieves the session ID and data from the request.
func (m *Manager) GetSession(ctx context.Context, r *http.Request) (string, *Data, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", nil, fmt.Errorf("no session cookie found: %w", err)
	}

	if ctx == nil {
		ctx = r.Context()
	}

	sessionID, err := m.parseSessionID(cookie.Value)
	if err != nil {
		return "", nil, fmt.Errorf("invalid session cookie: %w", err)
	}

	data, ok := m.store.Get(ctx, sessionID)
	if !ok {
		return "", nil, fmt.Errorf("session not found or expired")
	}

	if time.Now().Unix()-data.CreatedAt > int64(ttl.Seconds()) {
		m.store.Delete(ctx, sessionID)
		return "", nil, fmt.Errorf("session expired")
	}

	return sessionID, data, nil
}

// EnsureSession returns the request's session, creating one when the
// request carries none. A checkout can start on a browser's first request.
func (m *Manager) EnsureSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, *Data, error) {
	sessionID, data, err := m.GetSession(ctx, r)
	if err == nil {
		return sessionID, data, nil
	}

	data = &Data{}
	sessionID, err = m.CreateSession(ctx, w, data)
	if err != nil {
		return "", nil, err
	}
	return sessionID, data, nil
}

// UpdateSession replaces the session data, keeping the session ID.
func (m *Manager) UpdateSession(ctx context.Context, sessionID string, data *Data) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}
	if data == nil {
		return fmt.Errorf("session data is required")
	}
	if ctx == nil {
		return fmt.Errorf("context is required")
	}

	sessionData := cloneData(data)
	sessionData.CreatedAt = time.Now().Unix()
	m.store.Set(ctx, sessionID, sessionData, ttl)

	return nil
}

// DestroySession removes the session and clears the cookie.
func (m *Manager) DestroySession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if ctx == nil {
		ctx = r.Context()
	}

	if cookie, err := r.Cookie(cookieName); err == nil {
		if sessionID, parseErr := m.parseSessionID(cookie.Value); parseErr == nil {
			m.store.Delete(ctx, sessionID)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (m *Manager) signSessionID(sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

func (m *Manager) parseSessionID(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return claims.Subject, nil
}

func cloneData(data *Data) *Data {
	if data == nil {
		return nil
	}
	cloned := *data
	return &cloned
}
