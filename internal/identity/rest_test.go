package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bookhaven/haven/internal/shared"
)

// newProviderServer stands up a fake identity endpoint and returns a
// RESTProvider pointed at it. The handler receives the decoded request body.
func newProviderServer(t *testing.T, handler func(w http.ResponseWriter, endpoint string, body map[string]any)) (*RESTProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("request body did not decode: %v", err)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("expected api key on query string, got %q", r.URL.RawQuery)
		}
		handler(w, r.URL.Path, body)
	}))
	t.Cleanup(server.Close)
	return NewRESTProvider(server.URL, server.URL, "test-key", server.Client()), server
}

func writeProviderError(w http.ResponseWriter, code string) {
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": 400, "message": code},
	})
}

func TestRESTProviderSignIn(t *testing.T) {
	t.Run("Decodes Account And Notifies", func(t *testing.T) {
		provider, _ := newProviderServer(t, func(w http.ResponseWriter, endpoint string, body map[string]any) {
			if endpoint != "/accounts:signInWithPassword" {
				t.Errorf("unexpected endpoint %q", endpoint)
			}
			if body["email"] != "ana@example.com" {
				t.Errorf("expected email in payload, got %v", body["email"])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"localId":      "subject-1",
				"email":        "ana@example.com",
				"displayName":  "Ana",
				"idToken":      "id-token",
				"refreshToken": "refresh-1",
				"expiresIn":    "3600",
			})
		})

		var got Event
		provider.OnStateChange(func(ev Event) { got = ev })

		account, err := provider.SignInWithPassword(context.Background(), "ana@example.com", "hunter2")
		if err != nil {
			t.Fatalf("sign-in failed: %v", err)
		}
		if account.Identity.SubjectID != "subject-1" || account.ExpiresIn != 3600 {
			t.Errorf("account not decoded: %+v", account)
		}
		if got.Identity == nil || got.Identity.Email != "ana@example.com" || got.RefreshToken != "refresh-1" {
			t.Errorf("listener not notified with signed-in event: %+v", got)
		}
	})

	t.Run("Classifies Bad Credentials", func(t *testing.T) {
		provider, _ := newProviderServer(t, func(w http.ResponseWriter, endpoint string, body map[string]any) {
			writeProviderError(w, "INVALID_PASSWORD")
		})

		notified := false
		provider.OnStateChange(func(Event) { notified = true })

		_, err := provider.SignInWithPassword(context.Background(), "ana@example.com", "wrong")
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if notified {
			t.Error("failed sign-in must not notify listeners")
		}
	})
}

func TestRESTProviderSignUp(t *testing.T) {
	t.Run("Classifies Duplicate Email", func(t *testing.T) {
		provider, _ := newProviderServer(t, func(w http.ResponseWriter, endpoint string, body map[string]any) {
			writeProviderError(w, "EMAIL_EXISTS")
		})

		_, err := provider.SignUp(context.Background(), "ana@example.com", "hunter2")
		if !errors.Is(err, shared.ErrEmailInUse) {
			t.Fatalf("expected ErrEmailInUse, got %v", err)
		}
	})
}

func TestRESTProviderExchange(t *testing.T) {
	t.Run("Returns Credential And Rotated Token", func(t *testing.T) {
		provider, _ := newProviderServer(t, func(w http.ResponseWriter, endpoint string, body map[string]any) {
			if endpoint != "/token" {
				t.Errorf("unexpected endpoint %q", endpoint)
			}
			if body["grant_type"] != "refresh_token" {
				t.Errorf("expected refresh grant, got %v", body["grant_type"])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id_token":      "minted",
				"refresh_token": "refresh-2",
				"expires_in":    "3600",
			})
		})

		cred, rotated, err := provider.ExchangeRefreshToken(context.Background(), "refresh-1")
		if err != nil {
			t.Fatalf("exchange failed: %v", err)
		}
		if cred.Token != "minted" || rotated != "refresh-2" {
			t.Errorf("unexpected exchange result: cred=%+v rotated=%q", cred, rotated)
		}
		if cred.Expired() {
			t.Error("freshly minted credential should not be expired")
		}
	})

	t.Run("Classifies Expired Token", func(t *testing.T) {
		provider, _ := newProviderServer(t, func(w http.ResponseWriter, endpoint string, body map[string]any) {
			writeProviderError(w, "TOKEN_EXPIRED")
		})

		_, _, err := provider.ExchangeRefreshToken(context.Background(), "refresh-1")
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("Rejects Empty Token Without Request", func(t *testing.T) {
		provider, _ := newProviderServer(t, func(w http.ResponseWriter, endpoint string, body map[string]any) {
			t.Error("no request should be made for an empty refresh token")
		})

		_, _, err := provider.ExchangeRefreshToken(context.Background(), "")
		if !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Fatalf("expected ErrNoRefreshToken, got %v", err)
		}
	})
}

func TestRESTProviderSignOut(t *testing.T) {
	provider, _ := newProviderServer(t, func(w http.ResponseWriter, endpoint string, body map[string]any) {
		if endpoint != "/accounts:signOut" {
			t.Errorf("unexpected endpoint %q", endpoint)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	})

	var got Event
	cleared := false
	provider.OnStateChange(func(ev Event) {
		got = ev
		cleared = true
	})

	if err := provider.SignOut(context.Background(), "refresh-1"); err != nil {
		t.Fatalf("sign-out failed: %v", err)
	}
	if !cleared || got.Identity != nil {
		t.Errorf("expected signed-out notification, got cleared=%v event=%+v", cleared, got)
	}
}

func TestClassifyProviderError(t *testing.T) {
	cases := []struct {
		code string
		want error
	}{
		{"EMAIL_NOT_FOUND", shared.ErrInvalidCredentials},
		{"INVALID_LOGIN_CREDENTIALS", shared.ErrInvalidCredentials},
		{"USER_DISABLED", shared.ErrInvalidCredentials},
		{"EMAIL_EXISTS", shared.ErrEmailInUse},
		{"INVALID_REFRESH_TOKEN", shared.ErrTokenExpired},
		{"SOMETHING_ELSE", shared.ErrProviderFailure},
	}

	for _, tc := range cases {
		if err := classifyProviderError(tc.code); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.code, tc.want, err)
		}
	}
}
