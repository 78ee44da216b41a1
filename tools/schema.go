package tools

import (
	"github.com/getkin/kin-openapi/openapi3"
)

// ToolOption configures a tool under construction.
type ToolOption func(*Tool)

// PropertyOption configures one schema property.
type PropertyOption func(*openapi3.Schema)

// NewTool creates a tool with an empty object input schema.
func NewTool(name string, handler Handler, options ...ToolOption) *Tool {
	tool := &Tool{
		Name: name,
		InputSchema: &openapi3.Schema{
			Type:       &openapi3.Types{openapi3.TypeObject},
			Properties: make(openapi3.Schemas),
			Required:   []string{},
		},
		Handler: handler,
	}
	for _, option := range options {
		option(tool)
	}
	return tool
}

// WithDescription sets the tool description.
func WithDescription(description string) ToolOption {
	return func(t *Tool) {
		t.Description = description
	}
}

// WithString adds a string parameter to the tool's input schema.
func WithString(name string, options ...PropertyOption) ToolOption {
	return withProperty(name, openapi3.TypeString, options)
}

// WithInteger adds an integer parameter to the tool's input schema.
func WithInteger(name string, options ...PropertyOption) ToolOption {
	return withProperty(name, openapi3.TypeInteger, options)
}

// WithStringArray adds a string array parameter to the tool's input schema.
func WithStringArray(name string, options ...PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := &openapi3.Schema{
			Type: &openapi3.Types{openapi3.TypeArray},
			Items: openapi3.NewSchemaRef("", &openapi3.Schema{
				Type: &openapi3.Types{openapi3.TypeString},
			}),
		}
		applyProperty(t, name, schema, options)
	}
}

func withProperty(name, typ string, options []PropertyOption) ToolOption {
	return func(t *Tool) {
		schema := &openapi3.Schema{
			Type: &openapi3.Types{typ},
		}
		applyProperty(t, name, schema, options)
	}
}

func applyProperty(t *Tool, name string, schema *openapi3.Schema, options []PropertyOption) {
	for _, option := range options {
		option(schema)
	}
	t.InputSchema.Properties[name] = openapi3.NewSchemaRef("", schema)
	if len(schema.Required) > 0 {
		schema.Required = nil
		t.InputSchema.Required = append(t.InputSchema.Required, name)
	}
}

// Description sets a property description.
func Description(desc string) PropertyOption {
	return func(s *openapi3.Schema) {
		s.Description = desc
	}
}

// Required marks a property as required.
func Required() PropertyOption {
	return func(s *openapi3.Schema) {
		s.Required = []string{"true"}
	}
}
