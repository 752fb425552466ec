// Package ratelimit provides a sliding window rate limiter with
// pluggable storage and HTTP middleware.
//
// The limiter records request timestamps inside a trailing window, so
// bursts cannot straddle interval boundaries the way they can with fixed
// windows. MemoryStore serves single-instance deployments; RedisStore
// shares windows across replicas using a sorted set per key and a Lua
// script to keep check-and-record atomic.
package ratelimit
