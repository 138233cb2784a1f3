package schemavalidate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nova-labs/agentsched/internal/schemavalidate"
)

const reportSchema = `{
	"type": "object",
	"properties": {
		"recipients": {"type": "array", "items": {"type": "string"}},
		"format": {"type": "string", "enum": ["pdf", "csv"]}
	},
	"required": ["recipients"]
}`

func TestValidate_KindWithNoSchemaAlwaysPasses(t *testing.T) {
	v := schemavalidate.New()

	err := v.Validate("UNREGISTERED_KIND", map[string]any{"anything": true})
	assert.NoError(t, err)
}

func TestValidate_ConformingConfiguration(t *testing.T) {
	v := schemavalidate.New()
	require.NoError(t, v.RegisterSchema("REPORT", []byte(reportSchema)))

	err := v.Validate("REPORT", map[string]any{
		"recipients": []any{"ops@example.com"},
		"format":     "pdf",
	})
	assert.NoError(t, err)
}

func TestValidate_MissingRequiredField(t *testing.T) {
	v := schemavalidate.New()
	require.NoError(t, v.RegisterSchema("REPORT", []byte(reportSchema)))

	err := v.Validate("REPORT", map[string]any{"format": "pdf"})
	assert.Error(t, err)
}

func TestValidate_EnumViolation(t *testing.T) {
	v := schemavalidate.New()
	require.NoError(t, v.RegisterSchema("REPORT", []byte(reportSchema)))

	err := v.Validate("REPORT", map[string]any{
		"recipients": []any{"ops@example.com"},
		"format":     "docx",
	})
	assert.Error(t, err)
}

func TestRegisterSchema_InvalidSchemaFailsToCompile(t *testing.T) {
	v := schemavalidate.New()

	err := v.RegisterSchema("BROKEN", []byte(`{"type": "not-a-real-type"}`))
	assert.Error(t, err)
}
