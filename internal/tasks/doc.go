// Package tasks orchestrates long-running catalog operations with real-time progress reporting.
//
// # Core Operations
//
// The [SnapshotEngine] interface defines the archival operation:
//
//   - [SnapshotEngine.Snapshot] : Export books and comment threads to disk
//     - Fetches the target book set (whole catalog or an explicit list)
//     - Fetches each book's comment thread, rate limited
//     - Exports each book through a worker pool in the chosen format
//     - Writes a manifest summarizing successes and failures
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [CatalogEngine] implements [SnapshotEngine] with a dependency on
// [services.Catalog], the Book Haven API client.
package tasks
