package efts

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(NewClientParams{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestFindLatestObjectID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != `"340714585"` || r.URL.Query().Get("forms") != "990" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"hits": {"hits": [
			{"_source": {"ObjectId": "202401042216783"}},
			{"_source": {"ObjectId": "202301234567890"}}
		]}}`)
	})

	id, err := client.FindLatestObjectID(context.Background(), "34-0714585")
	if err != nil {
		t.Fatalf("FindLatestObjectID: %v", err)
	}
	if id != "202401042216783" {
		t.Fatalf("id = %q, want first hit", id)
	}
}

func TestFindLatestObjectIDNoHits(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hits": {"hits": []}}`)
	})

	id, err := client.FindLatestObjectID(context.Background(), "999999999")
	if err != nil {
		t.Fatalf("FindLatestObjectID: %v", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want empty for no hits", id)
	}
}

func TestFindLatestObjectIDServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	if _, err := client.FindLatestObjectID(context.Background(), "340714585"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
