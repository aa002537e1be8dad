package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mamadbah2/poultryledger/internal/config"
)

func TestSplitBody(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  []string
	}{
		{"fits", "abc", 10, []string{"abc"}},
		{"empty", "", 10, []string{""}},
		{"breaks on newline", "aaa\nbbb\nccc", 8, []string{"aaa\nbbb\n", "ccc"}},
		{"hard cut without newline", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"counts runes", "ééééé", 2, []string{"éé", "éé", "é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitBody(tt.body, tt.limit)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendTextPostsEachPart(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v20.0/12345/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if payload["to"] != "224600000000" {
			t.Errorf("to: %v", payload["to"])
		}
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"messages":[{"id":"wamid.%d"}]}`, n)
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "12345", BaseURL: srv.URL + "/", APIVersion: "v20.0"})
	body := strings.Repeat("ligne de digest\n", 400)

	ids, err := c.SendText(context.Background(), "224600000000", body)
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if len(ids) != int(atomic.LoadInt32(&calls)) || len(ids) < 2 {
		t.Errorf("expected one id per part, got %v over %d calls", ids, calls)
	}
}

func TestSendTextReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","code":190}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "bad", PhoneNumberID: "1", BaseURL: srv.URL, APIVersion: "v20.0"})
	_, err := c.SendText(context.Background(), "2246", "hello")
	if err == nil || !strings.Contains(err.Error(), "code=190") {
		t.Errorf("expected api error code, got %v", err)
	}
}
