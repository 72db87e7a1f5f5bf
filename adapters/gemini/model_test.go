package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/Gurpartap/horizons/agent"
	"github.com/Gurpartap/horizons/catalog"
)

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func TestContents_MapsRolesAndMergesTurns(t *testing.T) {
	t.Parallel()

	call := agent.ToolCall{ID: "call-1", Name: catalog.ToolRequestCalendarSelection, Arguments: map[string]any{"summary": "Which one?"}}
	history := []agent.Message{
		{Role: agent.RoleSystem, Content: "be brief"},
		agent.UserMessage("delete my meetings"),
		agent.ModelText("Which calendar?"),
		agent.ToolCallMessage(call),
		agent.ToolResultMessage(agent.ToolResult{
			CallID:   "call-1",
			Name:     call.Name,
			Response: map[string]any{"selectedCalendarId": "cal-work"},
		}),
	}

	contents, err := Contents(history)
	if err != nil {
		t.Fatalf("contents: %v", err)
	}
	if len(contents) != 3 {
		t.Fatalf("unexpected content count: got=%d want=3", len(contents))
	}

	if contents[0].Role != genai.RoleUser || len(contents[0].Parts) != 2 {
		t.Fatalf("system and user turns must merge into one user content: %+v", contents[0])
	}
	model := contents[1]
	if model.Role != genai.RoleModel || len(model.Parts) != 2 {
		t.Fatalf("plan text and replayed call must merge: %+v", model)
	}
	if model.Parts[1].FunctionCall == nil || model.Parts[1].FunctionCall.Name != call.Name || model.Parts[1].FunctionCall.ID != "call-1" {
		t.Fatalf("unexpected function call part: %+v", model.Parts[1])
	}
	result := contents[2]
	if result.Role != genai.RoleUser || result.Parts[0].FunctionResponse == nil {
		t.Fatalf("tool result must be a user function response: %+v", result)
	}
	if got := result.Parts[0].FunctionResponse; got.Name != call.Name || got.ID != "call-1" || got.Response["selectedCalendarId"] != "cal-work" {
		t.Fatalf("unexpected function response: %+v", got)
	}
}

func TestContents_RejectsToolTurnWithoutResult(t *testing.T) {
	t.Parallel()

	if _, err := Contents([]agent.Message{{Role: agent.RoleTool}}); !errors.Is(err, agent.ErrMessageInvalid) {
		t.Fatalf("expected ErrMessageInvalid, got %v", err)
	}
}

func TestSchema_ConvertsCatalogTools(t *testing.T) {
	t.Parallel()

	declarations := Declarations(catalog.Tools(catalog.ModeCalendarAssistant))
	var plan *genai.FunctionDeclaration
	for _, declaration := range declarations {
		if declaration.Name == catalog.ToolProposeCalendarActionPlan {
			plan = declaration
		}
	}
	if plan == nil {
		t.Fatalf("missing %s declaration", catalog.ToolProposeCalendarActionPlan)
	}
	if plan.Parameters.Type != genai.TypeObject {
		t.Fatalf("unexpected parameter type: got=%q want=%q", plan.Parameters.Type, genai.TypeObject)
	}
	events := plan.Parameters.Properties["events"]
	if events == nil || events.Type != genai.TypeArray || events.Items == nil || events.Items.Type != genai.TypeObject {
		t.Fatalf("unexpected events schema: %+v", events)
	}
	action := plan.Parameters.Properties["action"]
	if action == nil || len(action.Enum) != 3 {
		t.Fatalf("unexpected action schema: %+v", action)
	}
}

func TestGenerate_SendsToolsAndParsesCalls(t *testing.T) {
	t.Parallel()

	fake := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role: genai.RoleModel,
				Parts: []*genai.Part{
					{Text: "thinking", Thought: true},
					{Text: "Let me check."},
					{FunctionCall: &genai.FunctionCall{Name: catalog.ToolListCalendars, Args: map[string]any{}}},
				},
			},
		}},
	}}
	model := &Model{models: fake, name: "gemini-test"}

	resp, err := model.Generate(context.Background(), agent.ModelRequest{
		History:           []agent.Message{agent.UserMessage("what calendars do I have?")},
		Tools:             catalog.Tools(catalog.ModeCalendarAssistant),
		SystemInstruction: "instruction",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if fake.model != "gemini-test" {
		t.Fatalf("unexpected model: got=%q", fake.model)
	}
	if fake.config.SystemInstruction == nil || len(fake.config.Tools) != 1 {
		t.Fatalf("unexpected config: %+v", fake.config)
	}
	if resp.Text != "Let me check." {
		t.Fatalf("unexpected text: got=%q want=%q", resp.Text, "Let me check.")
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != catalog.ToolListCalendars || resp.ToolCalls[0].ID == "" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	model := &Model{models: &fakeGenerator{err: errors.New("quota")}, name: "m"}
	if _, err := model.Generate(context.Background(), agent.ModelRequest{History: []agent.Message{agent.UserMessage("hi")}}); err == nil {
		t.Fatalf("expected error")
	}

	empty := &Model{models: &fakeGenerator{resp: &genai.GenerateContentResponse{}}, name: "m"}
	if _, err := empty.Generate(context.Background(), agent.ModelRequest{History: []agent.Message{agent.UserMessage("hi")}}); !errors.Is(err, ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestNew_RequiresKeyAndModel(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), "", "m"); !errors.Is(err, ErrAPIKeyEmpty) {
		t.Fatalf("expected ErrAPIKeyEmpty, got %v", err)
	}
	if _, err := New(context.Background(), "key", " "); !errors.Is(err, ErrModelEmpty) {
		t.Fatalf("expected ErrModelEmpty, got %v", err)
	}
}
