// Package crawler defines the domain model and contracts shared by the
// aggregation engine, the source adapters, and the transports they use:
// queries, canonical job records, adapter outcomes, reports, and error kinds.
package crawler
