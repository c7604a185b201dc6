// Package cache provides a generic in-process LRU cache with per-entry
// expiry, used to keep hot directory lookups off the database.
package cache
