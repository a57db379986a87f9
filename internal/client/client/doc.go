// Package client talks to the record backend.
//
// Client is the transport-agnostic contract used by the hybrid record
// service and the sync engine. GRPCClient implements it over the hand-written
// gRPC contract in internal/wire: it injects the access token into outgoing
// metadata, refreshes it once when the server answers Unauthenticated, bounds
// every call with a timeout, retries transient failures with exponential
// backoff and maps gRPC status codes to sentinel errors.
//
// Callers match errors with errors.Is: ErrUnavailable (transient, retried
// and then surfaced), ErrUnauthorized (no or rejected session),
// common.ErrNotFound and common.ErrValidation.
package client
