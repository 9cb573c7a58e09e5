package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/jobpt/internal/domain"
	"github.com/google/go-cmp/cmp"
)

func TestHTTPClientChatSendsMessages(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"reply":"안녕하세요"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/")
	msgs := []ChatMessage{
		{Role: domain.RoleSystem, Content: "prompt"},
		{Role: domain.RoleUser, Content: "hello"},
	}
	reply, err := c.Chat(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "안녕하세요" {
		t.Fatalf("reply = %q", reply)
	}
	if diff := cmp.Diff(msgs, got.Messages); diff != "" {
		t.Fatalf("request messages mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPClientChatReplyAliases(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"reply", `{"reply":"a"}`, "a"},
		{"legacy message", `{"message":"b"}`, "b"},
		{"reply wins", `{"reply":"a","message":"b"}`, "a"},
		{"empty", `{}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			reply, err := NewHTTPClient(srv.URL).Chat(context.Background(), nil)
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			if reply != tt.want {
				t.Fatalf("reply = %q, want %q", reply, tt.want)
			}
		})
	}
}

func TestHTTPClientStatusErrors(t *testing.T) {
	tests := []struct {
		code int
		want FailureKind
	}{
		{http.StatusInternalServerError, FailureServer},
		{http.StatusBadGateway, FailureServer},
		{http.StatusNotFound, FailureNotFound},
		{http.StatusBadRequest, FailureUnknown},
		{http.StatusTooManyRequests, FailureUnknown},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer srv.Close()

			_, err := NewHTTPClient(srv.URL).Chat(context.Background(), nil)
			var se *StatusError
			if !errors.As(err, &se) || se.Code != tt.code {
				t.Fatalf("Chat() error = %v, want StatusError %d", err, tt.code)
			}
			if se.Body != "nope" {
				t.Fatalf("StatusError.Body = %q", se.Body)
			}
			if got := Classify(err); got != tt.want {
				t.Fatalf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient(srv.URL).Chat(ctx, nil)
	if err == nil {
		t.Fatal("Chat() expected timeout error")
	}
	if got := Classify(err); got != FailureTimeout {
		t.Fatalf("Classify() = %v, want timeout (err = %v)", got, err)
	}
}

func TestHTTPClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewHTTPClient(url).Probe(context.Background())
	if err == nil {
		t.Fatal("Probe() expected error against closed server")
	}
	if got := Classify(err); got != FailureNetwork {
		t.Fatalf("Classify() = %v, want network (err = %v)", got, err)
	}
}

func TestHTTPClientProbe(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewHTTPClient(srv.URL).Probe(context.Background()); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	want := []ChatMessage{{Role: domain.RoleUser, Content: ProbeContent}}
	if diff := cmp.Diff(want, got.Messages); diff != "" {
		t.Fatalf("probe body mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, FailureUnknown},
		{"deadline", fmt.Errorf("send: %w", context.DeadlineExceeded), FailureTimeout},
		{"plain", errors.New("boom"), FailureUnknown},
		{"wrapped status", fmt.Errorf("x: %w", &StatusError{Code: 503}), FailureServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Fatalf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
