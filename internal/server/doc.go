// Package server provides HTTP routing, middleware, OAuth sign-in and the server lifecycle for the web
// application.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [ChiRouter] implements it on a chi
// mux, so paths may carry parameters ("/admin/students/{id}") read with [URLParam].
//
// [Middleware] added with Use wraps every route registered afterwards; [Router.Group] scopes extra
// middleware (such as a role guard) to the routes declared inside it.
//
// # Middleware
//
//   - [RequestID] and [RequestLogger] tag and log every request with charmbracelet/log.
//   - [Recoverer] turns panics into 500 responses.
//   - [CSRF] wraps gorilla/csrf; forms carry the token in the [CSRFFieldName] field.
//
// # OAuth Handler
//
// [OAuthHandler] implements the authorization code flow: the start route stores a random state in a
// short-lived cookie and redirects to the provider; the callback validates the state, exchanges the code and
// passes an [OAuthResult] to the completion func, which starts the session.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
