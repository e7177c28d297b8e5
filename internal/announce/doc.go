// Package announce implements the announcement store and broadcast hub.
//
// Publish flow: AccessGate check, durable append, fan-out to a registry
// snapshot. Persistence always precedes delivery; delivery failures never
// roll anything back. MemoryStore is the in-process repository; the
// Postgres-backed one lives in internal/database.
package announce
