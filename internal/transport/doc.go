// Package transport implements a single WebSocket connection.
//
// A Conn:
//   - Dials with a handshake timeout and optional request headers
//   - Pumps every frame onto a buffered channel with a receive timestamp
//   - Answers server pings and sends keepalive pings of its own
//   - Reports read failures and stale connections on its error channel
//
// A Conn is single-use. Reconnecting means creating a new Conn.
package transport
