package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sohamukute/CogScheduler/core/cogsched"
)

func TestRegexProviderParsesDurations(t *testing.T) {
	p := NewRegexProvider()

	tasks, err := p.ParseTasks(context.Background(), "study calculus for 2 hours and write my essay for 30 minutes")
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "Study calculus", tasks[0].Title)
	assert.Equal(t, "math", tasks[0].Category)
	assert.Equal(t, 120, tasks[0].DurationMinutes)

	assert.Equal(t, "Write my essay", tasks[1].Title)
	assert.Equal(t, "writing", tasks[1].Category)
	assert.Equal(t, 30, tasks[1].DurationMinutes)
}

func TestRegexProviderDefaultsAndMinimums(t *testing.T) {
	p := NewRegexProvider()

	tasks, err := p.ParseTasks(context.Background(), "review flashcards")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "review", tasks[0].Category)
	assert.Equal(t, 60, tasks[0].DurationMinutes) // no duration stated
	assert.Equal(t, 5.0, tasks[0].Difficulty)

	tasks, err = p.ParseTasks(context.Background(), "skim the chapter for 5 minutes")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 25, tasks[0].DurationMinutes) // floor at one quantum
}

func TestRegexProviderSplitsSegments(t *testing.T) {
	p := NewRegexProvider()

	tasks, err := p.ParseTasks(context.Background(), "finish coding assignment, read chapter 3; revise history notes")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "programming", tasks[0].Category)
	assert.Equal(t, "reading", tasks[1].Category)
	assert.Equal(t, "review", tasks[2].Category)
}

func TestRegexProviderEmptyMessage(t *testing.T) {
	p := NewRegexProvider()

	tasks, err := p.ParseTasks(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

type stubProvider struct {
	name  string
	tasks []cogsched.Task
	err   error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) ParseTasks(context.Context, string) ([]cogsched.Task, error) {
	return s.tasks, s.err
}

func TestChainFallsThrough(t *testing.T) {
	want := []cogsched.Task{{Title: "X", Category: "general", Difficulty: 5, DurationMinutes: 60}}
	chain := NewChain(
		&stubProvider{name: "primary", err: errors.New("quota exceeded")},
		&stubProvider{name: "secondary", tasks: want},
	)

	tasks, err := chain.ParseTasks(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, want, tasks)
	assert.Equal(t, "chain:primary:secondary", chain.Name())
}

func TestChainAllFail(t *testing.T) {
	chain := NewChain(
		&stubProvider{name: "a", err: errors.New("down")},
		&stubProvider{name: "b", err: errors.New("also down")},
	)

	_, err := chain.ParseTasks(context.Background(), "whatever")
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestDecodeTaskJSON(t *testing.T) {
	raw := "```json\n{\"tasks\":[{\"title\":\"Study Calculus\",\"category\":\"math\",\"difficulty\":7,\"duration_minutes\":120}]}\n```"
	tasks, err := decodeTaskJSON(raw)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Study Calculus", tasks[0].Title)
	assert.Equal(t, 120, tasks[0].DurationMinutes)

	// Missing fields pick up defaults.
	tasks, err = decodeTaskJSON(`{"tasks":[{"title":"Read"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "general", tasks[0].Category)
	assert.Equal(t, 5.0, tasks[0].Difficulty)
	assert.Equal(t, 60, tasks[0].DurationMinutes)

	_, err = decodeTaskJSON("no json here")
	assert.Error(t, err)
}
