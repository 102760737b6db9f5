// Package client is the request gateway of the Book Explorer client: the one
// place where remote calls are made.
//
// # Overview
//
// Gateway is the transport contract consumed by the session manager, the
// catalog and the note flow. HTTPClient implements it over the REST API:
//  1. every call carries the current access token as a bearer credential,
//     read from a TokenSource at send time;
//  2. outbound calls are paced by a token-bucket limiter and isolated by a
//     circuit breaker that opens on transport failures and 5xx answers;
//  3. successful JSON payloads are decoded into the caller's value unchanged;
//  4. every failure is normalized into an *APIError carrying the remote
//     message (or a generic fallback), the HTTP status, and a Kind.
//
// # Error Handling
//
// Callers match failures with errors.Is against ErrUnauthorized,
// ErrUnavailable, ErrNotFound, ErrValidation and ErrServer, or use
// errors.As to reach the *APIError. A 401 is reported, never acted on: the
// gateway does not refresh tokens or clear the session by itself.
package client
