// Package feeds is a small HTTP client for third-party market data feeds that
// answer with a flat JSON object.
package feeds
