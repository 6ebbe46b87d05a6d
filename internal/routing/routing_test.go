package routing

import (
	"encoding/hex"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func noop(c *gin.Context) {}

func newPostTable(t *testing.T) *Table {
	t.Helper()
	table := NewTable("/api/")
	for _, r := range []Route{
		{Pattern: "v1/posts/{url_hex}/likes/toggle/", Method: http.MethodPost, Name: "toggle-post-like", Handler: noop},
		{Pattern: "v1/posts/{url_hex}/delete/", Method: http.MethodPost, Name: "delete-post", Handler: noop},
	} {
		if err := table.Register(r); err != nil {
			t.Fatalf("register %s: %v", r.Name, err)
		}
	}
	return table
}

// randomHex returns n random hex strings of varying length, plus some fixed
// edge cases (upper case, single digit).
func randomHex(n int) []string {
	rng := rand.New(rand.NewSource(42))
	out := []string{"0", "f", "ab12", "ABCDEF", "deadBEEF", "0123456789abcdef"}
	for i := 0; i < n; i++ {
		b := make([]byte, 1+rng.Intn(16))
		rng.Read(b)
		out = append(out, hex.EncodeToString(b))
	}
	return out
}

func TestResolve_ToggleLike(t *testing.T) {
	table := newPostTable(t)

	for _, h := range randomHex(50) {
		m, err := table.Resolve("v1/posts/"+h+"/likes/toggle/", http.MethodPost)
		if err != nil {
			t.Fatalf("resolve %q: %v", h, err)
		}
		if m.Route.Name != "toggle-post-like" {
			t.Errorf("hex %q: got route %q, want toggle-post-like", h, m.Route.Name)
		}
		if m.Params["url_hex"] != h {
			t.Errorf("hex %q: got url_hex %q", h, m.Params["url_hex"])
		}
	}
}

func TestResolve_DeletePost(t *testing.T) {
	table := newPostTable(t)

	for _, h := range randomHex(50) {
		m, err := table.Resolve("/v1/posts/"+h+"/delete/", http.MethodPost)
		if err != nil {
			t.Fatalf("resolve %q: %v", h, err)
		}
		if m.Route.Name != "delete-post" {
			t.Errorf("hex %q: got route %q, want delete-post", h, m.Route.Name)
		}
		if m.Params["url_hex"] != h {
			t.Errorf("hex %q: got url_hex %q", h, m.Params["url_hex"])
		}
	}
}

func TestResolve_NotFound(t *testing.T) {
	table := newPostTable(t)

	paths := []string{
		"",
		"v1/posts/",
		"v1/posts/ab12",
		"v1/posts/ab12/likes/toggle",
		"v1/posts/ab12/likes/",
		"v1/posts/ab12/delete",
		"v1/posts//delete/",
		"v2/posts/ab12/delete/",
		"v1/posts/ab12/delete/extra/",
	}
	for _, p := range paths {
		_, err := table.Resolve(p, http.MethodPost)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("resolve %q: expected ErrNotFound, got %v", p, err)
		}
	}
}

func TestResolve_MethodNotAllowed(t *testing.T) {
	table := newPostTable(t)

	_, err := table.Resolve("v1/posts/ab12/delete/", http.MethodGet)
	var mna *MethodNotAllowedError
	if !errors.As(err, &mna) {
		t.Fatalf("expected MethodNotAllowedError, got %v", err)
	}
	if len(mna.Allowed) != 1 || mna.Allowed[0] != http.MethodPost {
		t.Errorf("allowed = %v, want [POST]", mna.Allowed)
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	table := NewTable("")
	table.MustRegister(Route{Pattern: "items/{id:int}/", Name: "by-int", Handler: noop})
	table.MustRegister(Route{Pattern: "items/{id}/", Name: "by-str", Handler: noop})

	m, err := table.Resolve("items/42/", http.MethodGet)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Route.Name != "by-int" {
		t.Errorf("got %q, want by-int", m.Route.Name)
	}

	m, err = table.Resolve("items/abc/", http.MethodGet)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Route.Name != "by-str" {
		t.Errorf("got %q, want by-str", m.Route.Name)
	}
}

func TestResolve_SamePatternDifferentMethods(t *testing.T) {
	table := NewTable("")
	table.MustRegister(Route{Pattern: "posts/", Method: http.MethodGet, Name: "list", Handler: noop})
	table.MustRegister(Route{Pattern: "posts/", Method: http.MethodPost, Name: "create", Handler: noop})

	m, err := table.Resolve("posts/", http.MethodPost)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if m.Route.Name != "create" {
		t.Errorf("got %q, want create", m.Route.Name)
	}

	_, err = table.Resolve("posts/", http.MethodDelete)
	var mna *MethodNotAllowedError
	if !errors.As(err, &mna) {
		t.Fatalf("expected MethodNotAllowedError, got %v", err)
	}
	if len(mna.Allowed) != 2 {
		t.Errorf("allowed = %v, want GET and POST", mna.Allowed)
	}
}

func TestReverse(t *testing.T) {
	table := newPostTable(t)

	tests := []struct {
		name string
		want string
	}{
		{"toggle-post-like", "v1/posts/ab12/likes/toggle/"},
		{"delete-post", "v1/posts/ab12/delete/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Reverse(tt.name, Params{"url_hex": "ab12"})
			if err != nil {
				t.Fatalf("reverse: %v", err)
			}
			if got != tt.want {
				t.Errorf("Reverse(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestReverse_RoundTrip(t *testing.T) {
	table := newPostTable(t)

	for _, h := range randomHex(20) {
		for _, name := range []string{"toggle-post-like", "delete-post"} {
			path, err := table.Reverse(name, Params{"url_hex": h})
			if err != nil {
				t.Fatalf("reverse %s: %v", name, err)
			}
			m, err := table.Resolve(path, http.MethodPost)
			if err != nil {
				t.Fatalf("resolve %q: %v", path, err)
			}
			if m.Route.Name != name || m.Params["url_hex"] != h {
				t.Errorf("round trip %s/%s: got %s/%s", name, h, m.Route.Name, m.Params["url_hex"])
			}
		}
	}
}

func TestReverse_Errors(t *testing.T) {
	table := NewTable("")
	table.MustRegister(Route{Pattern: "v1/posts/{url_hex}/delete/", Name: "delete-post", Handler: noop})
	table.MustRegister(Route{Pattern: "v1/items/{id:int}/", Name: "item", Handler: noop})

	tests := []struct {
		name   string
		route  string
		params Params
	}{
		{"unknown name", "missing", Params{"url_hex": "ab12"}},
		{"missing param", "delete-post", nil},
		{"extra param", "delete-post", Params{"url_hex": "ab12", "other": "x"}},
		{"empty value", "delete-post", Params{"url_hex": ""}},
		{"converter mismatch", "item", Params{"id": "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Reverse(tt.route, tt.params)
			if !errors.Is(err, ErrNoReverseMatch) {
				t.Errorf("expected ErrNoReverseMatch, got %v", err)
			}
		})
	}
}

func TestURL(t *testing.T) {
	table := newPostTable(t)

	got, err := table.URL("delete-post", Params{"url_hex": "ab12"})
	if err != nil {
		t.Fatalf("url: %v", err)
	}
	if got != "/api/v1/posts/ab12/delete/" {
		t.Errorf("URL = %q", got)
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	table := newPostTable(t)

	err := table.Register(Route{Pattern: "v1/other/", Name: "delete-post", Handler: noop})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if len(table.Routes()) != 2 {
		t.Errorf("duplicate route was appended: %d routes", len(table.Routes()))
	}

	// Unnamed routes never collide.
	if err := table.Register(Route{Pattern: "a/", Handler: noop}); err != nil {
		t.Fatalf("unnamed route: %v", err)
	}
	if err := table.Register(Route{Pattern: "b/", Handler: noop}); err != nil {
		t.Fatalf("second unnamed route: %v", err)
	}
}

func TestRegister_InvalidPatterns(t *testing.T) {
	patterns := []string{
		"/leading/",
		"a//b/",
		"posts/x{id}/",
		"posts/{}/",
		"posts/{1id}/",
		"posts/{id:nope}/",
		"posts/{id}/{id}/",
		"posts/{id/",
	}
	for _, p := range patterns {
		table := NewTable("")
		err := table.Register(Route{Pattern: p, Name: "x", Handler: noop})
		if !errors.Is(err, ErrInvalidPattern) {
			t.Errorf("pattern %q: expected ErrInvalidPattern, got %v", p, err)
		}
	}
}

func TestRegister_NilHandler(t *testing.T) {
	table := NewTable("")
	if err := table.Register(Route{Pattern: "a/", Name: "a"}); !errors.Is(err, ErrInvalidPattern) {
		t.Errorf("expected ErrInvalidPattern for nil handler, got %v", err)
	}
}

func TestIsHex(t *testing.T) {
	for s, want := range map[string]bool{
		"":     false,
		"ab12": true,
		"AB12": true,
		"xyz":  false,
		"12 3": false,
	} {
		if got := IsHex(s); got != want {
			t.Errorf("IsHex(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestDispatch(t *testing.T) {
	gin.SetMode(gin.TestMode)

	table := NewTable("/api/")
	var gotHex, gotName string
	table.MustRegister(Route{
		Pattern: "v1/posts/{url_hex}/delete/",
		Method:  http.MethodPost,
		Name:    "delete-post",
		Handler: func(c *gin.Context) {
			gotHex = c.Param("url_hex")
			gotName = c.GetString(RouteNameKey)
			c.Status(http.StatusNoContent)
		},
	})

	router := gin.New()
	router.Any("/api/*path", table.Dispatch())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPost, "/api/v1/posts/ab12/delete/", http.StatusNoContent},
		{http.MethodGet, "/api/v1/posts/ab12/delete/", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/posts/ab12/", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}

	if gotHex != "ab12" {
		t.Errorf("handler saw url_hex %q", gotHex)
	}
	if gotName != "delete-post" {
		t.Errorf("handler saw route name %q", gotName)
	}
}

func TestDispatch_AllowHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	table := newPostTable(t)
	router := gin.New()
	router.Any("/api/*path", table.Dispatch())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/posts/ab12/likes/toggle/", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "POST" {
		t.Errorf("Allow = %q, want POST", got)
	}
}
