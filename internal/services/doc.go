// Package services talks to the remote backend.
//
// # Remote Interface
//
// [Remote] is the per-entity-type contract the mutation pipeline and integrity repairer depend on.
//
// # HTTP Implementation
//
// [HTTPRemote] speaks JSON over HTTP to the reference backend (see the server package):
//   - GET    /api/{kind}?user_id=&where=  : list
//   - POST   /api/{kind}                  : create, returns the assigned ID
//   - PATCH  /api/{kind}/{id}             : field-level update
//   - DELETE /api/{kind}/{id}             : delete
//   - GET    /api/{kind}/subscribe        : websocket push of the full list after each change
//
// Requests carry a bearer token from an [oauth2.TokenSource]; the identity package's session provider is one.
//
// # Normalization
//
// Wire payloads never reach the reconciler. Each [Codec] converts its DTO ([QuoteDTO], [TaskDTO], [PlaylistDTO]) into
// the canonical models type at this boundary, parsing timestamps and trimming text.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrRemoteUnavailable] : transport failure or 5xx response
//   - [shared.ErrRemoteRejected] : 4xx response
//   - [shared.ErrNotAuthenticated] : 401 response or no token available
//   - [shared.ErrEntityNotFound] : 404 response
//   - [shared.ErrMalformedResponse] : body could not be decoded
package services
