// Package server implements the reference backend that [services.HTTPRemote] talks to.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("GET /api/quotes") internally.
//
// # Collections
//
// A [Collection] serves one entity type backed by a [models.Repository]:
//
//	GET    /api/{kind}?user_id=u1&where=author=="Seneca"
//	POST   /api/{kind}
//	PATCH  /api/{kind}/{id}
//	DELETE /api/{kind}/{id}
//	GET    /api/{kind}/subscribe?user_id=u1   (websocket)
//
// Subscribers receive the owner's full list after every mutation. The where parameter is an expression compiled
// by the filter package.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
