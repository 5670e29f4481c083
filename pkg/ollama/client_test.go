package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"http://localhost:11434", false},
		{"http://localhost:11434/api/chat", false},
		{"localhost", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		_, err := NewClient(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewClient(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestLocateFaces(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(api.ChatResponse{
			Model: got.Model,
			Message: api.Message{
				Role:    "assistant",
				Content: `{"faces":[{"box":{"x":0.25,"y":0.2,"w":0.5,"h":0.4},"confidence":0.9}],"description":"one person"}`,
			},
			Done: true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	report, err := c.LocateFaces(context.Background(), "minicpm-v4", "find faces", "aGVsbG8=")
	if err != nil {
		t.Fatalf("LocateFaces failed: %v", err)
	}
	if len(report.Faces) != 1 || report.Faces[0].Box.W != 0.5 {
		t.Errorf("Unexpected report %+v", report)
	}

	if got.Model != "minicpm-v4" || len(got.Messages) != 1 || len(got.Messages[0].Images) != 1 {
		t.Errorf("Unexpected request %+v", got)
	}
	if len(got.Messages) == 1 && len(got.Messages[0].Images) == 1 && string(got.Messages[0].Images[0]) != "hello" {
		t.Errorf("Expected decoded image bytes, got %q", got.Messages[0].Images[0])
	}
	if got.Options["num_ctx"] != float64(4096) {
		t.Errorf("Expected num_ctx 4096 for minicpm-v4, got %v", got.Options["num_ctx"])
	}
}

func TestSimpleQueryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if _, err := c.SimpleQuery(context.Background(), "m", "hi", "aGVsbG8="); err == nil {
		t.Error("Expected error for server failure")
	}
	if _, err := c.SimpleQuery(context.Background(), "m", "hi", "%%%"); err == nil {
		t.Error("Expected error for invalid base64 image")
	}
}
