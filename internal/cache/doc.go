// Package cache provides a Redis-backed answer cache for fully processed
// query results. This package is internal and should not be imported by
// external projects.
package cache
