// Package stream implements streaming subscription management for market-data
// WebSocket feeds.
//
// The package provides:
//   - Client contracts shared by every vendor stream (Alpaca, Polygon)
//   - Event fan-out for connected, socket-opened, socket-closed and error signals
//   - A Subscription Registry that tracks the desired subscription set
//   - Reconnect wrappers that re-authenticate and replay subscriptions after
//     an unexpected disconnect
//   - Session, the protocol-driven client the vendor packages build on
package stream
