// Package websocket pushes refresh notifications to dashboard browsers.
//
// The Hub owns the client set and fans out messages; each Client runs a
// read pump and a write pump over one connection. After every snapshot
// replacement the dashboard service calls Hub.NotifySnapshot and each
// browser re-queries /api/dashboard with its own filters.
package websocket
