// Package server exposes the execution engine over HTTP: agent-system
// lifecycle (create, update, deploy, delete), chat turns driving the routing
// loop, UI interaction delivery with session continuation, and operational
// endpoints (health, metrics).
//
// The server holds the authoritative copy of designed system specs; only
// deployed systems are registered with the runner and accept chat.
package server
