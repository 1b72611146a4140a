package catalog

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/artifact"
	"github.com/hupe1980/meshflow/core"
)

func sampleDefs() []core.AgentDefinition {
	return []core.AgentDefinition{
		{ID: "writer", Name: "Writer", Instructions: "Write.", Capabilities: []string{"writing"}},
		{ID: "billing", Instructions: "Handle invoices.", Capabilities: []string{"billing", "support"}},
		{ID: "tech", Instructions: "Fix things.", Capabilities: []string{"support"}, Tools: []string{"data_lookup"}},
	}
}

func TestCatalog_RegisterAndGet(t *testing.T) {
	c := New(sampleDefs()...)
	assert.Equal(t, 3, c.Len())

	def, err := c.Get("writer")
	require.NoError(t, err)
	assert.Equal(t, "Writer", def.Name)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestCatalog_DuplicateAndInvalid(t *testing.T) {
	c := New(sampleDefs()...)

	err := c.Register(core.AgentDefinition{ID: "writer"})
	assert.ErrorIs(t, err, core.ErrDuplicateAgent)

	assert.Error(t, c.Register(core.AgentDefinition{}))
	assert.Panics(t, func() { New(core.AgentDefinition{ID: "a"}, core.AgentDefinition{ID: "a"}) })
}

func TestCatalog_DefinitionsAreImmutable(t *testing.T) {
	def := core.AgentDefinition{ID: "a", Capabilities: []string{"x"}}
	c := New(def)

	def.Capabilities[0] = "mutated"
	got, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got.Capabilities)

	got.Capabilities[0] = "mutated-again"
	again, _ := c.Get("a")
	assert.Equal(t, []string{"x"}, again.Capabilities)
}

func TestCatalog_UnregisterAndOrder(t *testing.T) {
	c := New(sampleDefs()...)

	assert.True(t, c.Unregister("billing"))
	assert.False(t, c.Unregister("billing"))

	ids := []string{}
	for _, d := range c.List() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"writer", "tech"}, ids)

	require.NoError(t, c.Register(core.AgentDefinition{ID: "billing"}))
	assert.Equal(t, "billing", c.List()[2].ID)
}

func TestCatalog_FindByCapability(t *testing.T) {
	c := New(sampleDefs()...)

	support := c.FindByCapability("support")
	require.Len(t, support, 2)
	assert.Equal(t, "billing", support[0].ID)
	assert.Equal(t, "tech", support[1].ID)

	assert.Empty(t, c.FindByCapability("Support"))
}

func TestCatalog_ExportImportRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			src := New(sampleDefs()...)

			var buf bytes.Buffer
			require.NoError(t, src.Export(&buf, format))

			dst := New()
			require.NoError(t, dst.Import(&buf, format, ImportOptions{}))
			assert.Equal(t, src.List(), dst.List())
		})
	}
}

func TestCatalog_ImportConflicts(t *testing.T) {
	c := New(core.AgentDefinition{ID: "writer"})

	doc := `{"agents":[{"id":"fresh"},{"id":"writer"}]}`
	err := c.Import(strings.NewReader(doc), FormatJSON, ImportOptions{})
	assert.ErrorIs(t, err, core.ErrDuplicateAgent)
	assert.Equal(t, 1, c.Len(), "failed import must not register anything")

	require.NoError(t, c.Import(strings.NewReader(doc), FormatJSON, ImportOptions{Replace: true}))
	assert.Equal(t, 2, c.Len())

	err = c.Import(strings.NewReader(`{"agents":[{"id":"x"},{"id":"x"}]}`), FormatJSON, ImportOptions{Replace: true})
	assert.ErrorIs(t, err, core.ErrDuplicateAgent)
}

func TestCatalog_BackupRestore(t *testing.T) {
	store := artifact.NewInMemoryStore()
	c := New(sampleDefs()...)
	require.NoError(t, c.Backup(store, "snap-1"))

	c.Unregister("writer")
	require.NoError(t, c.Register(core.AgentDefinition{ID: "temp"}))

	require.NoError(t, c.Restore(store, "snap-1"))
	assert.Equal(t, New(sampleDefs()...).List(), c.List())

	assert.ErrorIs(t, c.Restore(store, "missing"), artifact.ErrNotFound)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agents:
  - id: a
    instructions: Say hi.
    capabilities: [greeting]
  - id: b
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.Len(t, c.FindByCapability("greeting"), 1)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("toml")
	assert.Error(t, err)
}
