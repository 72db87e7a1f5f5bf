package modeltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/Gurpartap/horizons/agent"
)

// Response configures one model turn in a scripted sequence.
type Response struct {
	Response agent.ModelResponse
	Err      error
	// Wait blocks the call until the channel closes or the context ends.
	Wait <-chan struct{}
}

// Text scripts a plain text reply.
func Text(text string) Response {
	return Response{Response: agent.ModelResponse{Text: text}}
}

// Call scripts a reply requesting one tool call.
func Call(id, name string, arguments map[string]any) Response {
	return Response{Response: agent.ModelResponse{ToolCalls: []agent.ToolCall{{
		ID:        id,
		Name:      name,
		Arguments: arguments,
	}}}}
}

// Fail scripts a model error.
func Fail(err error) Response {
	return Response{Err: err}
}

// ScriptedModel is a deterministic model adapter for runtime tests.
type ScriptedModel struct {
	mu        sync.Mutex
	index     int
	responses []Response
	requests  []agent.ModelRequest
}

func NewScriptedModel(responses ...Response) *ScriptedModel {
	cloned := make([]Response, len(responses))
	copy(cloned, responses)
	return &ScriptedModel{
		responses: cloned,
	}
}

var _ agent.Model = (*ScriptedModel)(nil)

func (m *ScriptedModel) Generate(ctx context.Context, request agent.ModelRequest) (agent.ModelResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, agent.ModelRequest{
		History:           agent.CloneMessages(request.History),
		Tools:             agent.CloneToolDefinitions(request.Tools),
		SystemInstruction: request.SystemInstruction,
	})
	if m.index >= len(m.responses) {
		step := m.index + 1
		m.mu.Unlock()
		return agent.ModelResponse{}, fmt.Errorf("script exhausted at step %d", step)
	}
	current := m.responses[m.index]
	m.index++
	m.mu.Unlock()

	if current.Wait != nil {
		select {
		case <-current.Wait:
		case <-ctx.Done():
			return agent.ModelResponse{}, ctx.Err()
		}
	}
	if current.Err != nil {
		return agent.ModelResponse{}, current.Err
	}
	out := current.Response
	if len(out.ToolCalls) > 0 {
		out.ToolCalls = make([]agent.ToolCall, len(current.Response.ToolCalls))
		for i := range current.Response.ToolCalls {
			out.ToolCalls[i] = agent.CloneToolCall(current.Response.ToolCalls[i])
		}
	}
	return out, nil
}

// Requests returns a copy of every request received so far.
func (m *ScriptedModel) Requests() []agent.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]agent.ModelRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Generate was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}
