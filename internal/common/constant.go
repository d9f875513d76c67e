// Package common contains shared constants and sentinel errors used across
// the edge service layers.
package common

// ServiceName is reported by the health endpoint.
const ServiceName = "abateiq-marketing-edge"

// PlaceholderAPIOrigin is the origin shipped in sample configs. It is
// treated the same as an unset origin.
const PlaceholderAPIOrigin = "https://api.abateiq.com"

// DefaultDashboardURL is returned in session payloads when no dashboard
// URL is configured.
const DefaultDashboardURL = "https://app.abateiq.com"
