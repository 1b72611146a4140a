package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExecutionContext(t *testing.T) {
	ec := NewExecutionContext("", NewUserTurn("hello"))

	assert.NotEmpty(t, ec.ConversationID)
	require.Len(t, ec.Turns, 1)
	assert.Equal(t, "hello", ec.Turns[0].Text())
	assert.NotNil(t, ec.Data)
}

func TestExecutionContext_CloneIsolation(t *testing.T) {
	ec := NewExecutionContext("conv-1", NewUserTurn("hello"))
	ec.Set("nested", map[string]any{"k": "v"})
	ec.Set("list", []any{"a"})

	clone := ec.Clone()
	clone.Append(NewTextTurn(RoleAssistant, "a", "reply"))
	clone.Set("extra", 1)
	clone.Data["nested"].(map[string]any)["k"] = "changed"
	clone.Data["list"].([]any)[0] = "b"
	clone.Turns[0].Parts[0] = TextPart{Text: "mutated"}

	assert.Len(t, ec.Turns, 1)
	assert.Equal(t, "hello", ec.Turns[0].Text())
	_, ok := ec.Get("extra")
	assert.False(t, ok)
	assert.Equal(t, "v", ec.Data["nested"].(map[string]any)["k"])
	assert.Equal(t, "a", ec.Data["list"].([]any)[0])
	assert.Equal(t, ec.ConversationID, clone.ConversationID)
}

func TestExecutionContext_LastTurnAndMerge(t *testing.T) {
	ec := &ExecutionContext{}
	_, ok := ec.LastTurn()
	assert.False(t, ok)

	ec.Append(NewUserTurn("one"), NewUserTurn("two"))
	last, ok := ec.LastTurn()
	require.True(t, ok)
	assert.Equal(t, "two", last.Text())

	ec.Merge(map[string]any{"a": 1, "b": 2})
	v, ok := ec.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestLimits_Expired(t *testing.T) {
	now := time.Now()
	assert.False(t, Limits{}.Expired(now))
	assert.False(t, Limits{Deadline: now.Add(time.Second)}.Expired(now))
	assert.True(t, Limits{Deadline: now}.Expired(now))
}
