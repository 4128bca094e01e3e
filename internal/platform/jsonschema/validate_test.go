package jsonschema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objSchema = `{
  "type": "object",
  "properties": {
    "aggregation": {"type": "string", "enum": ["count", "sum"]},
    "columns": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["aggregation"]
}`

func TestValidateAcceptsConformingDocument(t *testing.T) {
	s := MustCompile(objSchema)
	require.NoError(t, s.Validate([]byte(`{"aggregation":"count","columns":["a"]}`)))
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	s := MustCompile(objSchema)
	err := s.Validate([]byte(`{"aggregation":"median","columns":[1]}`))
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Errors, 2)
}

func TestValidateEmptyDocumentIsObject(t *testing.T) {
	err := MustCompile(objSchema).Validate(nil)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "(root)", ve.Errors[0].Field)
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	err := ValidateString(objSchema, `{"aggregation":`)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "invalid JSON", ve.Errors[0].Message)
}
