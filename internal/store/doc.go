// Package store owns the SQLite traceability database: schema, migrations,
// upsert and read queries, and the phase-run ledger.
//
// Every pipeline phase executes inside a single transaction via
// Store.RunPhase, which also enforces phase ordering and records completion
// atomically with the phase's output. The connection pool is capped at one
// connection, so all reads issued while a phase transaction is open must go
// through the Tx the phase was handed.
package store
