package catalog

import (
	"bytes"

	"github.com/hupe1980/meshflow/artifact"
)

// BackupNamespace is the artifact namespace holding catalog snapshots.
const BackupNamespace = "catalog"

// Backup stores a JSON snapshot of the catalog under name.
func (c *Catalog) Backup(store artifact.Store, name string) error {
	var buf bytes.Buffer
	if err := c.Export(&buf, FormatJSON); err != nil {
		return err
	}
	return store.Save(BackupNamespace, name, buf.Bytes())
}

// Restore replaces the catalog contents with the snapshot stored under name.
func (c *Catalog) Restore(store artifact.Store, name string) error {
	data, err := store.Get(BackupNamespace, name)
	if err != nil {
		return err
	}
	return c.Import(bytes.NewReader(data), FormatJSON, ImportOptions{Replace: true})
}
