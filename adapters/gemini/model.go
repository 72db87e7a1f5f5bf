// Package gemini adapts the Gemini API to agent.Model.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/Gurpartap/horizons/agent"
)

var (
	ErrAPIKeyEmpty = errors.New("gemini api key is empty")
	ErrModelEmpty  = errors.New("gemini model name is empty")
	// ErrNoCandidates is returned when the API answers without any candidate.
	ErrNoCandidates = errors.New("gemini response has no candidates")
)

// generator is the subset of *genai.Models used by Model.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Model struct {
	models generator
	name   string
}

var _ agent.Model = (*Model)(nil)

// New connects to the Gemini API with apiKey.
func New(ctx context.Context, apiKey, model string) (*Model, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAPIKeyEmpty
	}
	if strings.TrimSpace(model) == "" {
		return nil, ErrModelEmpty
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Model{models: client.Models, name: model}, nil
}

func (m *Model) Generate(ctx context.Context, request agent.ModelRequest) (agent.ModelResponse, error) {
	if ctx == nil {
		return agent.ModelResponse{}, agent.ErrContextNil
	}
	contents, err := Contents(request.History)
	if err != nil {
		return agent.ModelResponse{}, err
	}
	config := &genai.GenerateContentConfig{}
	if request.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(request.SystemInstruction, genai.RoleUser)
	}
	if len(request.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: Declarations(request.Tools)}}
	}

	resp, err := m.models.GenerateContent(ctx, m.name, contents, config)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return agent.ModelResponse{}, ctxErr
		}
		return agent.ModelResponse{}, fmt.Errorf("gemini generate content: %w", err)
	}
	return Response(resp)
}

// Contents converts a transcript into Gemini contents. System turns become
// user turns, tool results become user turns carrying a function response,
// and consecutive turns of the same role are merged.
func Contents(history []agent.Message) ([]*genai.Content, error) {
	contents := make([]*genai.Content, 0, len(history))
	for i, message := range history {
		role, parts, err := convertMessage(message)
		if err != nil {
			return nil, fmt.Errorf("convert message %d: %w", i, err)
		}
		if len(parts) == 0 {
			continue
		}
		if n := len(contents); n > 0 && contents[n-1].Role == role {
			contents[n-1].Parts = append(contents[n-1].Parts, parts...)
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents, nil
}

func convertMessage(message agent.Message) (string, []*genai.Part, error) {
	switch message.Role {
	case agent.RoleUser, agent.RoleSystem:
		return genai.RoleUser, textParts(message.Content), nil
	case agent.RoleModel:
		parts := textParts(message.Content)
		if message.ToolCall != nil {
			parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   message.ToolCall.ID,
				Name: message.ToolCall.Name,
				Args: agent.CloneArguments(message.ToolCall.Arguments),
			}})
		}
		return genai.RoleModel, parts, nil
	case agent.RoleTool:
		if message.ToolResult == nil {
			return "", nil, fmt.Errorf("%w: tool turn without result", agent.ErrMessageInvalid)
		}
		part := genai.NewPartFromFunctionResponse(message.ToolResult.Name, agent.CloneArguments(message.ToolResult.Response))
		part.FunctionResponse.ID = message.ToolResult.CallID
		return genai.RoleUser, []*genai.Part{part}, nil
	default:
		return "", nil, fmt.Errorf("%w: role=%q", agent.ErrMessageInvalid, message.Role)
	}
}

func textParts(text string) []*genai.Part {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []*genai.Part{genai.NewPartFromText(text)}
}

// Response collects the text and function calls of the first candidate.
func Response(resp *genai.GenerateContentResponse) (agent.ModelResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return agent.ModelResponse{}, fmt.Errorf("%w: blocked=%s", ErrNoCandidates, resp.PromptFeedback.BlockReason)
		}
		return agent.ModelResponse{}, ErrNoCandidates
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return agent.ModelResponse{}, nil
	}

	var (
		out  agent.ModelResponse
		text strings.Builder
	)
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = uuid.NewString()
			}
			out.ToolCalls = append(out.ToolCalls, agent.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: agent.CloneArguments(part.FunctionCall.Args),
			})
		}
	}
	out.Text = text.String()
	return out, nil
}
