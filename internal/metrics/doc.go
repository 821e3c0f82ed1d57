// Package metrics defines observability hooks for the cache, geofence and
// notification components, with a Prometheus implementation.
package metrics
