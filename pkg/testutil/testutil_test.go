package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]string{{"id": "1"}, {"id": "2"}})
	})

	mux.HandleFunc("POST /items", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		body["id"] = "new_1"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	})

	mux.HandleFunc("PUT /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": r.PathValue("id"), "updated": "true"})
	})

	mux.HandleFunc("DELETE /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /form", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		result := map[string]string{}
		for k, v := range r.Form {
			result[k] = v[0]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	})

	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"authorization": r.Header.Get("Authorization")})
	})

	return httptest.NewServer(mux)
}

func TestClientGet(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv)
	resp := c.Get("/items")

	resp.AssertStatus(http.StatusOK)
	var items []map[string]string
	resp.JSON(&items)
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestClientPost(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv)
	resp := c.Post("/items", map[string]string{"name": "test"})

	resp.AssertStatus(http.StatusCreated)
	m := resp.JSONMap()
	if m["id"] != "new_1" {
		t.Errorf("expected id=new_1, got %v", m["id"])
	}
}

func TestClientPut(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv)
	resp := c.Put("/items/42", map[string]string{"name": "updated"})

	resp.AssertStatus(http.StatusOK)
	m := resp.JSONMap()
	if m["updated"] != "true" {
		t.Errorf("expected updated=true, got %v", m["updated"])
	}
}

func TestClientDelete(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv)
	c.Delete("/items/42").AssertStatus(http.StatusNoContent)
}

func TestClientPostForm(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv)
	resp := c.PostForm("/form", map[string]string{"key": "val"})

	resp.AssertStatus(http.StatusOK)
	m := resp.JSONMap()
	if m["key"] != "val" {
		t.Errorf("expected key=val, got %v", m["key"])
	}
}

func TestClientWithToken(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv).WithToken("tok_123")
	resp := c.Get("/whoami")

	resp.AssertStatus(http.StatusOK)
	m := resp.JSONMap()
	if m["authorization"] != "Bearer tok_123" {
		t.Errorf("expected bearer header, got %v", m["authorization"])
	}
}

func TestClientWithTokenDoesNotMutateOriginal(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv)
	_ = c.WithToken("tok_123")
	if c.Token != "" {
		t.Error("expected original client to stay anonymous")
	}
}

func TestDoWithHeadersOverridesToken(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv).WithToken("tok_123")
	resp := c.DoWithHeaders("GET", "/whoami", nil, map[string]string{
		"Authorization": "Bearer tok_override",
	})

	m := resp.JSONMap()
	if m["authorization"] != "Bearer tok_override" {
		t.Errorf("expected explicit header to win, got %v", m["authorization"])
	}
}

func TestResponseAssertBodyContains(t *testing.T) {
	srv := newTestServer()
	defer srv.Close()

	c := NewClient(t, srv)
	c.Get("/items").AssertStatus(http.StatusOK).AssertBodyContains(`"id"`)
}
