// Package repository defines the data access interface for the node store.
//
// NodeRepository is the contract every backend implements. Two backends
// exist:
//
// - postgres: the production store on PostgreSQL (SERIAL ids, JSONB
// attributes) using a pgx connection pool
// - sqlite: an embedded store on SQLite used for local runs and tests
//
// # Schema
//
// Both backends own a single table, nodes(id, label, attributes), created
// idempotently by Migrate. There is no migration framework.
//
// # Transactions
//
// Each operation acquires a transaction or connection from the pool and
// releases it on every exit path. Isolation is whatever the engine provides;
// concurrent writers to the same id are last-writer-wins.
package repository
