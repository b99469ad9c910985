// Package websocket pushes document lifecycle events to subscribers of
// GET /api/events. Clients only listen; anything they send is discarded.
package websocket
