// Package history implements the two-tier conversation log: an in-process
// cache over a durable document store. Appends are write-through, reads
// hydrate the cache lazily, and all operations on one conversation identifier
// are serialized by a per-identifier lock.
package history
