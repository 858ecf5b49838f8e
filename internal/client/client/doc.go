// Package client contains the client-side transport for Send It.
//
// # Overview
//
// The package provides:
//  1. The API contract used by the CLI (see the Client interface): sign-in,
//     documents, live watches and blob URLs.
//  2. A gRPC implementation (see GRPCClient) that manages a connection,
//     injects the access token via interceptors, transparently refreshes an
//     expired token on unary calls, refreshes a nearly expired one before a
//     watch stream is opened, and maps gRPC status codes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) for the
//     SQLite file that keeps the signed-in session between runs.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match
// with errors.Is: ErrUnavailable, ErrUnauthorized, ErrForbidden, ErrNotFound,
// ErrInvalidArgument.
//
// Concurrency & Contexts
//
// GRPCClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation.
package client
