// Package artifact provides blob storage for snapshots such as catalog
// backups and frozen workflow records. Blobs are scoped by namespace and
// addressed by name. Store is the contract; InMemoryStore is the bundled
// implementation.
package artifact
