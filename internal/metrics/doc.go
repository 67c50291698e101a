// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Reconnection loops started and attempts by auth result
//   - Subscriptions replayed and replay failures
//   - REST pages fetched per endpoint
package metrics
