package agents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-agents/internal/jsondoc"
)

func TestLookup(t *testing.T) {
	tests := map[string]struct {
		want Kind
		ok   bool
	}{
		"commander":            {Commander, true},
		"  Stock_News ":        {StockNews, true},
		"SECTOR_NEWS":          {SectorNews, true},
		"financial_analysis":   {FinancialAnalysis, true},
		"trend_analysis":       {TrendAnalysis, true},
		"":                     {0, false},
		"trend":                {0, false},
		"commander_and_friend": {0, false},
	}
	for id, tt := range tests {
		got, ok := Lookup(id)
		assert.Equal(t, tt.ok, ok, id)
		if tt.ok {
			assert.Equal(t, tt.want, got, id)
		}
	}
}

func TestCatalogOrder(t *testing.T) {
	assert.Equal(t, []Kind{Commander, StockNews, SectorNews, FinancialAnalysis, TrendAnalysis}, All())
	assert.Equal(t, All()[1:], SubAgents())

	for _, k := range All() {
		back, ok := Lookup(k.ID())
		require.True(t, ok)
		assert.Equal(t, k, back)
		assert.NotEmpty(t, k.Name())
	}
	assert.True(t, Commander.Definition().FullContext)
	assert.True(t, TrendAnalysis.Definition().FullContext)
	assert.False(t, StockNews.Definition().FullContext)
	assert.False(t, Kind(42).Valid())
}

func TestJSONSchema(t *testing.T) {
	s := JSONSchema(Commander)
	assert.Equal(t, "object", s.Type)
	assert.Equal(t, FieldNames(Commander), s.Required)

	rec := s.Properties["recommendation"]
	require.NotNil(t, rec)
	assert.Equal(t, NestedFieldNames(Commander, "recommendation"), rec.Required)
	assert.Len(t, rec.Properties["action"].Enum, len(actionChoices)+1)
	assert.Contains(t, rec.Properties["action"].Enum, nil)
	assert.Equal(t, []string{"number", "null"}, rec.Properties["targetPrice"].Types)
	assert.Equal(t, []string{"number", "null"}, rec.Properties["confidence"].Types)
	assert.Equal(t, "string", s.Properties["summary"].Type, "summary defaults to an empty string")
	assert.Equal(t, []any{"commander"}, s.Properties["agent"].Enum)

	ev := s.Properties["evidence"]
	require.NotNil(t, ev.Items)
	assert.Contains(t, ev.Items.Required, "publishedAt")

	_, err := json.Marshal(JSONSchema(TrendAnalysis))
	assert.NoError(t, err)
}

func TestNormalizedOutputSatisfiesJSONSchema(t *testing.T) {
	for _, k := range All() {
		t.Run(k.ID(), func(t *testing.T) {
			resolved, err := JSONSchema(k).Resolve(nil)
			require.NoError(t, err)

			empty := Normalize(k, jsondoc.ObjectOf())
			assert.NoError(t, resolved.Validate(empty.Interface()))
		})
	}

	resolved, err := JSONSchema(Commander).Resolve(nil)
	require.NoError(t, err)

	doc, err := jsondoc.Parse([]byte(`{
		"summary": "看多",
		"recommendation": {"action": "加仓", "targetPrice": 1600, "confidence": null},
		"evidence": [{"point": "营收增长"}]
	}`))
	require.NoError(t, err)
	assert.NoError(t, resolved.Validate(Normalize(Commander, doc).Interface()))

	bad, err := jsondoc.Parse([]byte(`{"recommendation": {"action": "买入"}}`))
	require.NoError(t, err)
	assert.Error(t, resolved.Validate(Normalize(Commander, bad).Interface()))
}

func TestSkeletonMarksNullDefaults(t *testing.T) {
	sk := Skeleton(Commander)
	assert.Contains(t, sk, `"confidence": number|null`)
	assert.Contains(t, sk, `"action": "观察|试仓|加仓|减仓|清仓|null"`)
	assert.Contains(t, sk, `"agent": "commander"`)
	assert.Contains(t, sk, `"summary": "string",`)
	assert.Contains(t, sk, `"reasons": ["string"]`)
}
