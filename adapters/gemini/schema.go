package gemini

import (
	"strings"

	"google.golang.org/genai"

	"github.com/Gurpartap/horizons/agent"
)

// Declarations converts tool definitions into Gemini function declarations.
func Declarations(tools []agent.ToolDefinition) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		out = append(out, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  Schema(tool.InputSchema),
		})
	}
	return out
}

// Schema converts a JSON schema object into a Gemini schema. Unknown keywords
// are dropped.
func Schema(in map[string]any) *genai.Schema {
	if in == nil {
		return nil
	}
	out := &genai.Schema{}
	if kind, ok := in["type"].(string); ok {
		out.Type = genai.Type(strings.ToUpper(kind))
	}
	if description, ok := in["description"].(string); ok {
		out.Description = description
	}
	if format, ok := in["format"].(string); ok {
		out.Format = format
	}
	out.Enum = stringList(in["enum"])
	out.Required = stringList(in["required"])
	if items, ok := in["items"].(map[string]any); ok {
		out.Items = Schema(items)
	}
	if properties, ok := in["properties"].(map[string]any); ok && len(properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(properties))
		for name, raw := range properties {
			if property, ok := raw.(map[string]any); ok {
				out.Properties[name] = Schema(property)
			}
		}
	}
	return out
}

func stringList(raw any) []string {
	switch values := raw.(type) {
	case []string:
		return append([]string(nil), values...)
	case []any:
		out := make([]string, 0, len(values))
		for _, value := range values {
			if s, ok := value.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
