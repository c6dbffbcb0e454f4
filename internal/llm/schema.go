package llm

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// OutputSchema describes the JSON object a generation call must return.
// It renders both the prompt's format section and the provider response schema.
type OutputSchema struct {
	Name   string
	Fields []SchemaField
}

// SchemaField defines a single field in the generated object.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // "string" or "[]string"
	Description string
	Required    bool
}

// RequiredFields returns the names of all required fields in declaration order
func (s OutputSchema) RequiredFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// FormatInstructions renders the output contract for inclusion in a prompt.
func (s OutputSchema) FormatInstructions() string {
	var sb strings.Builder

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range s.Fields {
		typeHint := `"string"`
		if field.Type == "[]string" {
			typeHint = `["string"]`
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(s.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n")

	if required := s.RequiredFields(); len(required) > 1 {
		sb.WriteString(fmt.Sprintf("ALL OF %s ARE MANDATORY - DO NOT OMIT ANY OF THEM.\n", strings.Join(required, ", ")))
	}

	return sb.String()
}

// toGenAI converts the schema into a Gemini response schema.
func (s OutputSchema) toGenAI() *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	for _, f := range s.Fields {
		switch f.Type {
		case "[]string":
			props[f.Name] = &genai.Schema{
				Type:        genai.TypeArray,
				Description: f.Description,
				Items:       &genai.Schema{Type: genai.TypeString},
			}
		default:
			props[f.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: f.Description,
			}
		}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.RequiredFields(),
	}
}

// TailoringSchema is the dual-output contract of the tailoring step:
// a list of information gaps and the full tailored resume.
func TailoringSchema() OutputSchema {
	return OutputSchema{
		Name: "ResumeAnalysisAndGeneration",
		Fields: []SchemaField{
			{
				Name:        "missing_info",
				Type:        "[]string",
				Description: "Specific missing information/experiences that would significantly improve the application (may be empty)",
				Required:    true,
			},
			{
				Name:        "tailored_resume",
				Type:        "string",
				Description: "The complete tailored resume in markdown format",
				Required:    true,
			},
		},
	}
}
