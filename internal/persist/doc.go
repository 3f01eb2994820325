// Package persist provides durable best-effort snapshots of the conversation
// collection backed by SQLite.
package persist
