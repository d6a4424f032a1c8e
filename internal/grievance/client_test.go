package grievance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewClientRejectsEmptyConfig(t *testing.T) {
	if c := NewClient("", "tok"); c != nil {
		t.Fatal("expected nil client for empty base URL")
	}
	if c := NewClient("https://example.org", ""); c != nil {
		t.Fatal("expected nil client for empty token")
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/grievances/GRV-42" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Fatalf("auth header = %q", got)
		}
		_ = json.NewEncoder(w).Encode(grievanceResponse{Ref: "GRV-42", Status: "resolved"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-1")
	status, err := c.Status(context.Background(), "GRV-42")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != "resolved" {
		t.Fatalf("status = %q, want resolved", status)
	}
}

func TestStatusErrors(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusNotFound, ErrNotFound},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.code)
		}))
		c := NewClient(srv.URL, "tok")
		_, err := c.Status(context.Background(), "GRV-1")
		srv.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("code %d: err = %v, want %v", tc.code, err, tc.want)
		}
	}
}

func TestSignalSettled(t *testing.T) {
	var got signalRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s", r.Method)
		}
		if r.URL.Path != "/grievances/GRV-7/review" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	if err := c.SignalSettled(context.Background(), "GRV-7", "verified"); err != nil {
		t.Fatalf("SignalSettled: %v", err)
	}
	if got.Outcome != "settled" || got.Notes != "verified" {
		t.Fatalf("payload = %+v", got)
	}
}
