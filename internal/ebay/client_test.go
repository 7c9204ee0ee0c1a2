package ebay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

// newStubClient wires a Client and TokenManager to a stub that serves both
// the token endpoint and API endpoints.
func newStubClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			w.Write([]byte(`{"access_token":"test-token","expires_in":7200}`))
			return
		}
		handler(w, r)
	}))
	tokens := NewTokenManagerWithEndpoint(testCredentials(), server.URL+"/token")
	client := NewClientWithBaseURL(tokens, server.URL, zerolog.Nop())
	return client, server
}

func TestClient_Request(t *testing.T) {
	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Expected bearer token, got '%s'", got)
		}
		if got := r.Header.Get("Content-Language"); got != "en-US" {
			t.Errorf("Expected en-US content language, got '%s'", got)
		}
		w.Write([]byte(`{"ok":true}`))
	})
	defer server.Close()

	raw, err := client.Request(context.Background(), "GET", "/sell/account/v1/payment_policy", nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("Unexpected body: %s", raw)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"recovered":true}`))
	})
	defer server.Close()

	raw, err := client.Request(context.Background(), "GET", "/sell/inventory/v1/inventory_item/X", nil)
	if err != nil {
		t.Fatalf("Expected recovery after retries, got: %v", err)
	}
	if string(raw) != `{"recovered":true}` {
		t.Errorf("Unexpected body: %s", raw)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("Expected 3 attempts, got %d", n)
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"bad category"}]}`))
	})
	defer server.Close()

	_, err := client.Request(context.Background(), "POST", "/sell/inventory/v1/offer", map[string]string{"sku": "X"})
	if err == nil {
		t.Fatal("Expected error for 400 response")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got: %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", apiErr.Status)
	}
	if !strings.Contains(apiErr.Body, "bad category") {
		t.Errorf("Expected eBay message preserved, got: %s", apiErr.Body)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("Expected 1 attempt for client error, got %d", n)
	}
}

func TestClient_NoContent(t *testing.T) {
	client, server := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	defer server.Close()

	raw, err := client.Request(context.Background(), "PUT", "/sell/inventory/v1/inventory_item/X", map[string]int{"quantity": 0})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(raw) != `{"success":true}` {
		t.Errorf("Expected success marker for 204, got: %s", raw)
	}
}
