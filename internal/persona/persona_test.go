package persona

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-rag/internal/llm"
)

type fakeNotifier struct {
	pushed []string
}

func (f *fakeNotifier) Push(_ context.Context, text string) error {
	f.pushed = append(f.pushed, text)
	return nil
}

// scriptedCompleter replays a fixed sequence of completions and records the
// requests it saw.
type scriptedCompleter struct {
	replies  []llm.Message
	finishes []string
	requests []llm.Request
}

func (s *scriptedCompleter) Complete(_ context.Context, req llm.Request) (llm.Message, string, error) {
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	return s.replies[i], s.finishes[i], nil
}

func testProfile() Profile {
	return Profile{
		Name:     "Ada Lovelace",
		Summary:  "First programmer.",
		LinkedIn: "Analytical Engine Ltd.",
	}
}

func TestNew_RegistersToolTable(t *testing.T) {
	p, err := New(testProfile(), &scriptedCompleter{}, &fakeNotifier{})
	require.NoError(t, err)

	assert.Len(t, p.toolDefs, 2)
	names := []string{p.toolDefs[0].Function.Name, p.toolDefs[1].Function.Name}
	assert.Contains(t, names, ToolRecordUserDetails)
	assert.Contains(t, names, ToolRecordUnknownQuestion)
}

func TestSystemPrompt(t *testing.T) {
	p, err := New(testProfile(), &scriptedCompleter{}, &fakeNotifier{})
	require.NoError(t, err)

	prompt := p.SystemPrompt()
	assert.Contains(t, prompt, "You are acting as Ada Lovelace.")
	assert.Contains(t, prompt, "## Summary:\nFirst programmer.")
	assert.Contains(t, prompt, "## LinkedIn Profile:\nAnalytical Engine Ltd.")
	assert.Contains(t, prompt, ToolRecordUnknownQuestion)
}

func TestChat_PlainAnswer(t *testing.T) {
	completer := &scriptedCompleter{
		replies:  []llm.Message{{Role: "assistant", Content: "Delighted to meet you."}},
		finishes: []string{"stop"},
	}
	p, err := New(testProfile(), completer, &fakeNotifier{})
	require.NoError(t, err)

	answer, err := p.Chat(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "Delighted to meet you.", answer)

	require.Len(t, completer.requests, 1)
	req := completer.requests[0]
	assert.Len(t, req.Tools, 2)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "hello", req.Messages[1].Content)
}

func TestChat_ToolRound(t *testing.T) {
	toolReply := llm.Message{
		Role: "assistant",
		ToolCalls: []llm.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      ToolRecordUnknownQuestion,
				Arguments: `{"question":"favourite colour?"}`,
			},
		}},
	}
	completer := &scriptedCompleter{
		replies:  []llm.Message{toolReply, {Role: "assistant", Content: "I've noted that down."}},
		finishes: []string{llm.FinishToolCalls, "stop"},
	}
	notifier := &fakeNotifier{}
	p, err := New(testProfile(), completer, notifier)
	require.NoError(t, err)

	answer, err := p.Chat(context.Background(), "what is your favourite colour?", nil)
	require.NoError(t, err)
	assert.Equal(t, "I've noted that down.", answer)

	// the tool ran and pushed its notification
	require.Len(t, notifier.pushed, 1)
	assert.Equal(t, "Recording favourite colour?", notifier.pushed[0])

	// second round carries the assistant tool call and the tool result
	require.Len(t, completer.requests, 2)
	second := completer.requests[1].Messages
	assert.Equal(t, "assistant", second[len(second)-2].Role)
	toolMsg := second[len(second)-1]
	assert.Equal(t, "tool", toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.JSONEq(t, `{"recorded":"ok"}`, toolMsg.Content)
}

func TestChat_HistoryIncluded(t *testing.T) {
	completer := &scriptedCompleter{
		replies:  []llm.Message{{Role: "assistant", Content: "As I said, compilers."}},
		finishes: []string{"stop"},
	}
	p, err := New(testProfile(), completer, &fakeNotifier{})
	require.NoError(t, err)

	history := []llm.Message{
		{Role: "user", Content: "what do you do?"},
		{Role: "assistant", Content: "I work on compilers."},
	}
	_, err = p.Chat(context.Background(), "could you repeat that?", history)
	require.NoError(t, err)

	msgs := completer.requests[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, "what do you do?", msgs[1].Content)
	assert.Equal(t, "could you repeat that?", msgs[3].Content)
}

func TestDispatch(t *testing.T) {
	notifier := &fakeNotifier{}
	p, err := New(testProfile(), &scriptedCompleter{}, notifier)
	require.NoError(t, err)

	result, err := p.Dispatch(context.Background(), ToolRecordUserDetails, map[string]any{
		"email": "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"recorded": "ok"}, result)
	require.Len(t, notifier.pushed, 1)
	assert.Equal(t, "Recording Name not provided with email ada@example.com and notes not provided", notifier.pushed[0])
}

func TestDispatch_UnknownTool(t *testing.T) {
	p, err := New(testProfile(), &scriptedCompleter{}, &fakeNotifier{})
	require.NoError(t, err)

	_, err = p.Dispatch(context.Background(), "drop_all_tables", nil)
	assert.Error(t, err)
}

func TestDispatchCall_UnknownToolIsEmptyResult(t *testing.T) {
	p, err := New(testProfile(), &scriptedCompleter{}, &fakeNotifier{})
	require.NoError(t, err)

	result := p.dispatchCall(context.Background(), llm.ToolCall{
		ID:       "call_x",
		Function: llm.FunctionCall{Name: "nope", Arguments: "{}"},
	})
	assert.Empty(t, result)
}
