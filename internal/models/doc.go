// Package models defines domain entities and persistence interfaces for the Book Haven client.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs mirroring remote API data
//   - [Book] : Catalog entry metadata from the Book Haven API
//   - [Comment] : A single entry in a book's append-only comment thread
//   - [Identity] : The authenticated user's mirrored profile from the identity provider
//   - [Credential] : A short-lived bearer token proving the current Identity to the API
//
// 2. Persistent Entities: sqlite-backed models with full lifecycle management
//   - [Session] : The locally persisted sign-in state (identity mirror + refresh token)
//   - [ViewRecord] : Recently opened books for the TUI history list
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
