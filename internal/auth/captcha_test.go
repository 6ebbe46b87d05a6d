package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRecaptchaServer(t *testing.T, wantSecret string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		resp := recaptchaResponse{Success: r.PostForm.Get("secret") == wantSecret && r.PostForm.Get("response") == "good"}
		if !resp.Success {
			resp.ErrorCodes = []string{"invalid-input-response"}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestRecaptchaVerifier(t *testing.T) {
	srv := newRecaptchaServer(t, "priv")
	defer srv.Close()

	v := NewRecaptchaVerifier("priv")
	v.Endpoint = srv.URL

	if err := v.Verify(context.Background(), "good", "127.0.0.1"); err != nil {
		t.Errorf("expected good token to pass: %v", err)
	}
	if err := v.Verify(context.Background(), "bad", ""); !errors.Is(err, ErrCaptchaFailed) {
		t.Errorf("expected ErrCaptchaFailed, got %v", err)
	}
	if err := v.Verify(context.Background(), "", ""); !errors.Is(err, ErrCaptchaFailed) {
		t.Errorf("expected ErrCaptchaFailed for empty token, got %v", err)
	}
}

func TestRecaptchaVerifier_WrongSecret(t *testing.T) {
	srv := newRecaptchaServer(t, "priv")
	defer srv.Close()

	v := NewRecaptchaVerifier("other")
	v.Endpoint = srv.URL

	if err := v.Verify(context.Background(), "good", ""); !errors.Is(err, ErrCaptchaFailed) {
		t.Errorf("expected ErrCaptchaFailed, got %v", err)
	}
}

func TestRecaptchaVerifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("priv")
	v.Endpoint = srv.URL

	err := v.Verify(context.Background(), "good", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrCaptchaFailed) {
		t.Error("transport failures should not be reported as a rejected token")
	}
}
