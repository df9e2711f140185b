// Package glowpull implements a smart-meter data collector for the
// Bright/Glowmarkt API.
//
// # Architecture
//
// The collector is structured into several key packages:
//   - auth: token lifecycle (cache, expiry policy, refresh)
//   - glowmarkt: typed client for the upstream REST API
//   - batch: date-range splitting to the API's maximum window
//   - pipeline: the collection run (fetch, transform, sink writes)
//   - sink: InfluxDB and TimescaleDB point writers
//   - scheduler: optional periodic collection
//   - config, metrics: ambient configuration and instrumentation
//
// A run authenticates once (reusing the on-disk token cache when the
// token still has more than the safety margin of lifetime left), lists
// virtual entities, splits the requested range into windows of at most
// ten days, fetches readings for every resource x window pair on a
// bounded worker pool, and writes the resulting points to the configured
// sinks. Individual fetch failures are collected and reported without
// aborting the run.
package glowpull
