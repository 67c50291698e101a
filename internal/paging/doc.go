// Package paging drives token-paginated REST endpoints.
//
// Pages, Items and Collect walk a single-symbol endpoint: each page's
// NextPageToken is copied into the next request until the token is empty.
//
// FanOut walks a multi-symbol endpoint in the background and splits the
// results into one unbounded Queue per symbol, so each symbol can be consumed
// at its own rate.
package paging
