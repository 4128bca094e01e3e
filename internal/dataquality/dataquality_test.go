package dataquality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tagledger-backend/internal/datafile"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
)

func speedSchema() []FieldSpec {
	return []FieldSpec{{Name: "speed", Type: catalog.FieldTypeInteger, Required: true}}
}

func TestValidateMatchingFileHasNoViolations(t *testing.T) {
	for _, tc := range []struct {
		format string
		body   string
	}{
		{datafile.FormatCSV, "speed\n60\n"},
		{datafile.FormatJSON, `[{"speed": 60}]`},
		{datafile.FormatJSONL, `{"speed": 60}`},
	} {
		tbl, err := datafile.ReadBytes(tc.format, []byte(tc.body))
		require.NoError(t, err, tc.format)
		rep := Validate(speedSchema(), tbl)
		assert.True(t, rep.Valid, tc.format)
		assert.Empty(t, rep.Errors, tc.format)
		assert.NotNil(t, rep.Errors)
		assert.Equal(t, 1, rep.RecordCount)
		assert.Equal(t, 1, rep.ColumnCount)
	}
}

func TestValidateReportsViolations(t *testing.T) {
	fields := []FieldSpec{
		{Name: "speed", Type: catalog.FieldTypeInteger, Required: true},
		{Name: "label", Type: catalog.FieldTypeString, Required: true},
		{Name: "at", Type: catalog.FieldTypeDatetime, Nullable: true},
		{Name: "ok", Type: catalog.FieldTypeBoolean},
	}
	tbl, err := datafile.ReadBytes(datafile.FormatCSV, []byte("speed,at,ok,extra\nfast,2024-01-02,true,1\n,,maybe,2\n"))
	require.NoError(t, err)

	rep := Validate(fields, tbl)
	assert.False(t, rep.Valid)

	msgs := map[string]int{}
	for _, e := range rep.Errors {
		msgs[e.Field]++
	}
	assert.Equal(t, 1, msgs["label"], "missing required column")
	assert.Equal(t, 2, msgs["speed"], "bad integer plus null in non-nullable")
	assert.Equal(t, 0, msgs["at"], "nullable datetime")
	assert.Equal(t, 1, msgs["ok"], "bad boolean")

	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, "extra", rep.Warnings[0].Field)
}

func TestValidateWithoutSchemaOnlyCounts(t *testing.T) {
	tbl, err := datafile.ReadBytes(datafile.FormatCSV, []byte("a,b\n1,2\n3,4\n"))
	require.NoError(t, err)
	rep := Validate(nil, tbl)
	assert.True(t, rep.Valid)
	assert.Equal(t, 2, rep.RecordCount)
	assert.Equal(t, 2, rep.ColumnCount)
}

func TestFieldsFromSchema(t *testing.T) {
	specs := FieldsFromSchema([]*catalog.DataField{
		{Name: "speed", FieldType: catalog.FieldTypeInteger, Required: true},
		{Name: "note", FieldType: "string", Nullable: true},
	})
	assert.Equal(t, []FieldSpec{
		{Name: "speed", Type: catalog.FieldTypeInteger, Required: true},
		{Name: "note", Type: "string", Nullable: true},
	}, specs)
	assert.Empty(t, FieldsFromSchema(nil))
}

func TestCheckType(t *testing.T) {
	ok := map[string][]any{
		catalog.FieldTypeInteger:  {"42", "-3"},
		catalog.FieldTypeFloat:    {"1.5", "2"},
		catalog.FieldTypeBoolean:  {"true", "0", true},
		catalog.FieldTypeDatetime: {"2024-05-01T10:00:00Z", "2024-05-01"},
		catalog.FieldTypeJSON:     {`{"a":1}`, map[string]any{"a": 1}},
		catalog.FieldTypeString:   {"x", "1"},
	}
	for typ, vals := range ok {
		for _, v := range vals {
			assert.NoErrorf(t, CheckType(typ, v), "%s %v", typ, v)
		}
	}
	bad := map[string][]any{
		catalog.FieldTypeInteger:  {"1.5", "abc"},
		catalog.FieldTypeFloat:    {"abc"},
		catalog.FieldTypeBoolean:  {"maybe"},
		catalog.FieldTypeDatetime: {"yesterday"},
		catalog.FieldTypeJSON:     {"{nope"},
	}
	for typ, vals := range bad {
		for _, v := range vals {
			assert.Errorf(t, CheckType(typ, v), "%s %v", typ, v)
		}
	}
	assert.Error(t, CheckType("decimal", "1"))
}

func TestProfileSpeedScenario(t *testing.T) {
	tbl, err := datafile.ReadBytes(datafile.FormatJSON, []byte(`[{"speed": 60}]`))
	require.NoError(t, err)

	p := ProfileTable(tbl)
	assert.Equal(t, 1, p.RowCount)
	assert.Equal(t, 1, p.ColumnCount)

	st := p.Columns["speed"]
	require.NotNil(t, st)
	assert.True(t, st.Numeric)
	assert.Equal(t, 60.0, st.Min)
	assert.Equal(t, 60.0, st.Max)
	require.NotNil(t, st.Mean)
	assert.Equal(t, 60.0, *st.Mean)
	assert.Equal(t, 0, st.NullCount)
}

func TestStatsMixedAndNulls(t *testing.T) {
	st := Stats([]any{"b", nil, "a", "", "b"})
	assert.False(t, st.Numeric)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 2, st.NullCount)
	assert.Equal(t, 2, st.DistinctCount)
	assert.Equal(t, "a", st.Min)
	assert.Equal(t, "b", st.Max)
	assert.Nil(t, st.Mean)

	num := Stats([]any{"1", "3", nil})
	assert.True(t, num.Numeric)
	assert.Equal(t, 2.0, *num.Mean)
	assert.Equal(t, 4.0, *num.Sum)
}
