// Package polygon implements the Polygon stock stream.
//
// Subscriptions are per symbol and channel: trades (T), quotes (Q), second
// aggregates (A) and minute aggregates (AM). StreamClient implements
// stream.ChannelClient and publishes decoded data on the Trades, Quotes,
// SecondBars and MinuteBars events.
package polygon
