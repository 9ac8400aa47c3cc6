package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/bukuma/internal/model"
)

// --- モック定義 ---

type mockAuthService struct {
	signupFn         func(ctx context.Context, email, name, password string) (*model.User, *model.Session, error)
	loginFn          func(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
	withdrawFn       func(ctx context.Context, userID string) error
}

func (m *mockAuthService) Signup(ctx context.Context, email, name, password string) (*model.User, *model.Session, error) {
	if m.signupFn != nil {
		return m.signupFn(ctx, email, name, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if m.getCurrentUserFn != nil {
		return m.getCurrentUserFn(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockAuthService) Withdraw(ctx context.Context, userID string) error {
	if m.withdrawFn != nil {
		return m.withdrawFn(ctx, userID)
	}
	return nil
}

// --- テストヘルパー ---

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// --- POST /auth/signup テスト ---

func TestAuthHandler_Signup_SetsSessionCookie(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(_ context.Context, email, name, password string) (*model.User, *model.Session, error) {
			return &model.User{ID: "user-1", Email: email, Name: name},
				&model.Session{ID: "sess-1", UserID: "user-1"}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{SessionMaxAge: 3600, CookieSecure: true})

	body := bytes.NewBufferString(`{"email":"taro@example.com","name":"太郎","password":"password123"}`)
	r := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	w := httptest.NewRecorder()

	h.Signup(w, r)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	cookie := findCookie(w, sessionCookieName)
	if cookie == nil {
		t.Fatal("session cookie was not set")
	}
	if cookie.Value != "sess-1" {
		t.Errorf("cookie value = %q, want sess-1", cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	var resp userResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Email != "taro@example.com" {
		t.Errorf("email = %q, want taro@example.com", resp.Email)
	}
}

func TestAuthHandler_Signup_EmailTaken(t *testing.T) {
	svc := &mockAuthService{
		signupFn: func(_ context.Context, _, _, _ string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewEmailTakenError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	body := bytes.NewBufferString(`{"email":"taro@example.com","name":"太郎","password":"password123"}`)
	r := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	w := httptest.NewRecorder()

	h.Signup(w, r)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_Failure(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(_ context.Context, _, _ string) (*model.User, *model.Session, error) {
			return nil, nil, model.NewLoginFailedError()
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	body := bytes.NewBufferString(`{"email":"taro@example.com","password":"wrong"}`)
	r := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	w := httptest.NewRecorder()

	h.Login(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if findCookie(w, sessionCookieName) != nil {
		t.Error("session cookie must not be set on failure")
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	loggedOut := ""
	svc := &mockAuthService{
		logoutFn: func(_ context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	h.Logout(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if loggedOut != "sess-1" {
		t.Errorf("logged out session = %q, want sess-1", loggedOut)
	}

	cookie := findCookie(w, sessionCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("session cookie must be cleared")
	}
}

// --- GET /auth/me テスト ---

func TestAuthHandler_Me_Unauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Me(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthHandler_Me_ReturnsUserWithoutHash(t *testing.T) {
	svc := &mockAuthService{
		getCurrentUserFn: func(_ context.Context, sessionID string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Email:        "taro@example.com",
				Name:         "太郎",
				PasswordHash: "$2a$10$secret",
			}, nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()

	h.Me(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for key := range raw {
		if key == "password_hash" || key == "PasswordHash" {
			t.Error("response must not contain password hash")
		}
	}
}

// --- DELETE /auth/me テスト ---

func TestAuthHandler_Withdraw_Success(t *testing.T) {
	withdrawn := ""
	svc := &mockAuthService{
		withdrawFn: func(_ context.Context, userID string) error {
			withdrawn = userID
			return nil
		},
	}
	h := NewAuthHandler(svc, AuthHandlerConfig{})

	r := withUserID(httptest.NewRequest(http.MethodDelete, "/auth/me", nil), "user-1")
	w := httptest.NewRecorder()

	h.Withdraw(w, r)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if withdrawn != "user-1" {
		t.Errorf("withdrawn user = %q, want user-1", withdrawn)
	}
	cookie := findCookie(w, sessionCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Error("session cookie must be cleared after withdrawal")
	}
}

func TestAuthHandler_Withdraw_RequiresSession(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, AuthHandlerConfig{})

	r := httptest.NewRequest(http.MethodDelete, "/auth/me", nil)
	w := httptest.NewRecorder()

	h.Withdraw(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
