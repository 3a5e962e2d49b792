// Package cache implements the normalized client-side store: entity key
// resolution, connection-field merge resolvers, and the query records that
// let active queries observe entity updates without re-fetching.
package cache
