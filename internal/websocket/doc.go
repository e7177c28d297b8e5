// Package websocket tracks live subscriber connections.
//
// Registry is a mutex-guarded map with copy-on-read snapshots; per-connection
// write goroutines (ConnSender) handle slow clients gracefully by dropping
// deliveries instead of blocking the publish path.
package websocket
