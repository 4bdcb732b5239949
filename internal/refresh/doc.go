// Package refresh implements the live-reload broadcast service used while
// writing posts.
//
// Browser pages built in debug mode open a WebSocket to the subscriber port.
// After a rebuild the build process sends a one-line trigger to the trigger
// port (or publishes it on NATS); the service then fans a "reload" frame out
// to every connected page. Delivery is best effort: a subscriber that cannot
// keep up is disconnected rather than allowed to stall the others.
//
// The Hub owns the subscriber registry. Triggers only enqueue a message; a
// single broadcaster goroutine snapshots the registry under its lock and
// hands the message to each subscriber's outbox without blocking.
package refresh
