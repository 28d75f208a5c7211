// Package store defines the external persistence collaborator for sessions,
// chat messages and progress snapshots, with an in-memory implementation for
// tests and a SQLite implementation for durable deployments.
//
// The execution engine treats every store failure as non-fatal: errors are
// logged and the turn continues, so a database outage degrades persistence
// without corrupting conversations.
package store
