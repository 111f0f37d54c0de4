package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func postJSON(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegisterHandler(t *testing.T) {
	h := NewHandler(NewService(newMockUserRepo(), "test-secret"), nil)

	rec := postJSON(h.Register, "/api/v1/auth/register",
		`{"email":"a@example.com","password":"pw","display_name":"A","role":"customer"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	var u UserResponse
	if err := json.NewDecoder(rec.Body).Decode(&u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Email != "a@example.com" || u.Role != "customer" {
		t.Errorf("user: %+v", u)
	}
}

func TestRegisterHandler_ErrorsAreJSON(t *testing.T) {
	repo := newMockUserRepo()
	h := NewHandler(NewService(repo, "test-secret"), nil)

	if rec := postJSON(h.Register, "/x",
		`{"email":"a@example.com","password":"pw","display_name":"A","role":"customer"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed register: %d %s", rec.Code, rec.Body.String())
	}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"duplicate email", `{"email":"a@example.com","password":"pw","display_name":"B","role":"customer"}`, http.StatusConflict},
		{"invalid role", `{"email":"b@example.com","password":"pw","display_name":"B","role":"admin"}`, http.StatusBadRequest},
		{"missing fields", `{"email":"c@example.com"}`, http.StatusBadRequest},
		{"malformed json", `{`, http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := postJSON(h.Register, "/x", c.body)
		if rec.Code != c.want {
			t.Errorf("%s: got %d, want %d; body: %s", c.name, rec.Code, c.want, rec.Body.String())
			continue
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: Content-Type: got %q, want application/json", c.name, ct)
		}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body.Error == "" {
			t.Errorf("%s: error body must be {\"error\": string}, got %s", c.name, rec.Body.String())
		}
	}
}

func TestLoginHandler_ErrorsAreJSON(t *testing.T) {
	repo := newMockUserRepo()
	h := NewHandler(NewService(repo, "test-secret"), nil)

	if rec := postJSON(h.Register, "/x",
		`{"email":"a@example.com","password":"right","display_name":"A","role":"runner"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed register: %d %s", rec.Code, rec.Body.String())
	}

	rec := postJSON(h.Login, "/x", `{"email":"a@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d, want 401; body: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	rec = postJSON(h.Login, "/x", `{"email":"a@example.com","password":"right"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d; body: %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Token == "" {
		t.Errorf("login response: %s", rec.Body.String())
	}
}
