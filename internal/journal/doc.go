// Package journal persists watch attempt history in SQLite so
// operators can inspect what the client did across restarts.
package journal
