package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tagledger-backend/internal/datafile"
	"github.com/yungbote/tagledger-backend/internal/dataquality"
)

func table(t *testing.T) *datafile.Table {
	t.Helper()
	tbl, err := datafile.ReadBytes(datafile.FormatCSV, []byte("region,speed,name\neu,10,a\nus,20,b\neu,30,\n"))
	require.NoError(t, err)
	return tbl
}

func TestResolveConfigLayers(t *testing.T) {
	cfg, err := ResolveConfig("custom", []byte(`{"aggregation":"sum","columns":["speed"]}`), []byte(`{"group_by":"region"}`))
	require.NoError(t, err)
	assert.Equal(t, AggSum, cfg.Aggregation)
	assert.Equal(t, []string{"speed"}, cfg.Columns)
	assert.Equal(t, "region", cfg.GroupBy)

	cfg, err = ResolveConfig("mean", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, AggMean, cfg.Aggregation)

	cfg, err = ResolveConfig("custom", []byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, AggBasicStats, cfg.Aggregation)

	_, err = ResolveConfig("", []byte(`{"aggregation":"median"}`), nil)
	assert.Error(t, err)
}

func TestRunBasicStats(t *testing.T) {
	out, err := Run(Config{Aggregation: AggBasicStats}, table(t))
	require.NoError(t, err)
	assert.Equal(t, 3, out["row_count"])
	cols := out["columns"].(map[string]any)
	speed := cols["speed"].(*dataquality.ColumnStats)
	assert.Equal(t, 20.0, *speed.Mean)
	name := cols["name"].(*dataquality.ColumnStats)
	assert.Equal(t, 1, name.NullCount)
}

func TestRunGroupBy(t *testing.T) {
	out, err := Run(Config{Aggregation: AggSum, Columns: []string{"speed"}, GroupBy: "region"}, table(t))
	require.NoError(t, err)
	groups := out["groups"].(map[string]any)
	eu := groups["eu"].(map[string]any)
	assert.Equal(t, 2, eu["row_count"])
	assert.Equal(t, 40.0, eu["columns"].(map[string]any)["speed"])
	us := groups["us"].(map[string]any)
	assert.Equal(t, 20.0, us["columns"].(map[string]any)["speed"])
}

func TestRunNonNumericSumIsNil(t *testing.T) {
	out, err := Run(Config{Aggregation: AggSum, Columns: []string{"name"}}, table(t))
	require.NoError(t, err)
	assert.Nil(t, out["columns"].(map[string]any)["name"])
}

func TestRunUnknownColumn(t *testing.T) {
	_, err := Run(Config{Aggregation: AggCount, Columns: []string{"nope"}}, table(t))
	assert.Error(t, err)
	_, err = Run(Config{Aggregation: AggCount, GroupBy: "nope"}, table(t))
	assert.Error(t, err)
	_, err = Run(Config{Aggregation: AggCount}, nil)
	assert.Error(t, err)
}
