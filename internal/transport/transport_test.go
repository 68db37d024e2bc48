package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestKindValid(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{Standard, true},
		{Chrome, true},
		{"", false},
		{"firefox", false},
	}
	for _, tt := range tests {
		if got := tt.kind.Valid(); got != tt.want {
			t.Errorf("Kind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	for _, kind := range []Kind{Standard, Chrome, ""} {
		t.Run(string(kind), func(t *testing.T) {
			rt, err := New(kind, 2*time.Second)
			if err != nil {
				t.Fatalf("New(%q) error = %v", kind, err)
			}

			client := &http.Client{Transport: rt, Timeout: 5 * time.Second}
			resp, err := client.Get(server.URL)
			if err != nil {
				t.Fatalf("GET error = %v", err)
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK || string(body) != "ok" {
				t.Errorf("response = %d %q, want 200 \"ok\"", resp.StatusCode, body)
			}
		})
	}
}

func TestNewUnknownKind(t *testing.T) {
	if _, err := New("firefox", time.Second); err == nil {
		t.Error("New(firefox) should fail")
	}
}
