// Package bootstrap wires together every component of one cache-pirating
// run: LLC discovery, huge-page allocation, counter-group attachment, CPU
// pin validation, target spawn, and the goroutine set (controller +
// pirates) that the coordination engine drives. cmd/cachepirate calls
// this package once per invocation; nothing here is reused across runs.
package bootstrap
