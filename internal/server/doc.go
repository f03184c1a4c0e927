// Package server implements the lobby's WebSocket server.
//
// Each connection runs as a Session with a read duty and a write duty. The
// Dispatcher applies client events to the shared lobby.Registry and hands the
// resulting roster to the Directory, which fans it out to every session's
// bounded Outbox. Configuration, origin checks, rate limiting, and HTTP
// routing live in their own files.
package server
