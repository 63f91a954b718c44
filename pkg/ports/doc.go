// Package ports defines the driven-side interfaces of the engine: bookmark
// and metadata persistence and distributed locking. Adapters under
// pkg/adapters implement them.
package ports
