package api

import (
	"net/http"

	"github.com/qworpa/qworpa/internal/api/handlers"
	"github.com/qworpa/qworpa/internal/auth"
	"github.com/qworpa/qworpa/internal/routing"
)

// Prefix is the mount point of the API route table.
const Prefix = "/api/"

// Route names.
const (
	RouteHealth         = "health"
	RouteSignUp         = "sign-up"
	RouteSignIn         = "sign-in"
	RouteCreatePost     = "create-post"
	RoutePostDetail     = "post-detail"
	RouteTogglePostLike = "toggle-post-like"
	RouteDeletePost     = "delete-post"
)

// Handlers bundles the endpoint handlers mounted by URLPatterns.
type Handlers struct {
	Health   *handlers.HealthHandler
	Accounts *handlers.AccountHandler
	Posts    *handlers.PostHandler
	Auth     *auth.Authenticator
}

// URLPatterns registers the API routes on table, in match order.
func URLPatterns(table *routing.Table, h Handlers) error {
	protect := h.Auth.Require
	routes := []routing.Route{
		{Pattern: "v1/health/", Method: http.MethodGet, Name: RouteHealth, Handler: h.Health.Health},
		{Pattern: "v1/accounts/sign-up/", Method: http.MethodPost, Name: RouteSignUp, Handler: h.Accounts.SignUp},
		{Pattern: "v1/accounts/sign-in/", Method: http.MethodPost, Name: RouteSignIn, Handler: h.Accounts.SignIn},
		{Pattern: "v1/posts/", Method: http.MethodPost, Name: RouteCreatePost, Handler: protect(h.Posts.Create)},
		{Pattern: "v1/posts/{url_hex}/", Method: http.MethodGet, Name: RoutePostDetail, Handler: h.Posts.Get},
		{Pattern: "v1/posts/{url_hex}/likes/toggle/", Method: http.MethodPost, Name: RouteTogglePostLike, Handler: protect(h.Posts.ToggleLike)},
		{Pattern: "v1/posts/{url_hex}/delete/", Method: http.MethodPost, Name: RouteDeletePost, Handler: protect(h.Posts.Delete)},
	}
	for _, r := range routes {
		if err := table.Register(r); err != nil {
			return err
		}
	}
	return nil
}

// RouteTable returns the API routes mounted on placeholder handlers. It is
// used to list or reverse routes without a running server.
func RouteTable() (*routing.Table, error) {
	table := routing.NewTable(Prefix)
	err := URLPatterns(table, Handlers{
		Health:   &handlers.HealthHandler{},
		Accounts: &handlers.AccountHandler{},
		Posts:    &handlers.PostHandler{},
		Auth:     &auth.Authenticator{},
	})
	return table, err
}
