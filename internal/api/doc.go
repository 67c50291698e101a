// Package api provides the Alpaca market data REST client.
//
// REST endpoints:
//   - Production: https://data.alpaca.markets
//   - Sandbox: https://data.sandbox.alpaca.markets
//
// Historical trades and bars are token-paginated: every response carries
// next_page_token, which is passed back as page_token until it is empty.
// ListTrades and ListBars walk all pages lazily; StreamMultiBars walks a
// multi-symbol query in the background and splits it per symbol.
package api
