// Package sync holds the domain model for synchronizing catalog, order and
// review data from an external commerce platform into the local store.
//
// Entities are denormalized projections keyed by (tenant, remote ID). The
// package defines the ports consumed by the sync engines: the remote platform
// client, the schema validator, the search index and scoring sinks, and the
// tenant-scoped repositories.
package sync
