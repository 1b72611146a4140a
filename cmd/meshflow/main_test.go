package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `agents:
  - id: writer
    instructions: Write a draft.
  - id: reviewer
    capabilities: [review]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "agents.yaml", testCatalog)
	wf := writeFile(t, dir, "wf.yaml", "id: draft\ntype: sequential\nagents: [writer, reviewer]\n")

	out, err := execute(t, "validate", "--catalog", cat, "--workflow", wf)
	require.NoError(t, err)
	assert.Contains(t, out, "ok: draft (sequential, 2 agents")
}

func TestValidate_UnknownAgent(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "agents.yaml", testCatalog)
	wf := writeFile(t, dir, "wf.yaml", "type: sequential\nagents: [writer, editor]\n")

	_, err := execute(t, "validate", "--catalog", cat, "--workflow", wf)
	assert.ErrorContains(t, err, "editor")
}

func TestRun_MockProvider(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "agents.yaml", testCatalog)
	wf := writeFile(t, dir, "wf.yaml", "id: draft\ntype: sequential\nagents: [writer, reviewer]\n")

	out, err := execute(t, "run", "--catalog", cat, "--workflow", wf, "--input", "hi", "--provider", "mock")
	require.NoError(t, err)

	var rec struct {
		WorkflowID string `json:"workflow_id"`
		Status     string `json:"status"`
		Steps      int    `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "draft", rec.WorkflowID)
	assert.Equal(t, "completed", rec.Status)
	assert.Equal(t, 2, rec.Steps)
}

func TestRun_UnknownProvider(t *testing.T) {
	dir := t.TempDir()
	cat := writeFile(t, dir, "agents.yaml", testCatalog)
	wf := writeFile(t, dir, "wf.yaml", "type: sequential\nagents: [writer]\n")

	_, err := execute(t, "run", "--catalog", cat, "--workflow", wf, "--provider", "bedrock")
	assert.ErrorContains(t, err, "gateway.provider")
}

func TestCatalogExport(t *testing.T) {
	cat := writeFile(t, t.TempDir(), "agents.yaml", testCatalog)

	out, err := execute(t, "catalog", "export", "--catalog", cat, "--format", "json")
	require.NoError(t, err)

	var doc struct {
		Agents []struct {
			ID string `json:"id"`
		} `json:"agents"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Agents, 2)
	assert.Equal(t, "writer", doc.Agents[0].ID)
}
