package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFragmentAccess(t *testing.T) {
	f := Fragment{
		"id_info":    map[string]any{"nct_id": "NCT00000001", "secondary_id": []any{"A", "B"}},
		"enrollment": map[string]any{"$": "40", "@type": "Actual"},
		"location":   map[string]any{"status": "Recruiting"},
		"keyword":    "single",
	}

	assert.Equal(t, "NCT00000001", f.String("id_info.nct_id", ""))
	assert.Equal(t, "40", f.String("enrollment", ""))
	assert.Equal(t, "Actual", f.String("enrollment.@type", ""))
	assert.Equal(t, "N/A", f.String("phase", "N/A"))
	assert.Equal(t, "x", f.String("id_info.nct_id.deeper", "x"))

	assert.Equal(t, []string{"A", "B"}, f.Strings("id_info.secondary_id"))
	assert.Equal(t, []string{"single"}, f.Strings("keyword"))
	assert.Nil(t, f.Strings("condition"))

	locs := f.Fragments("location")
	if assert.Len(t, locs, 1) {
		assert.Equal(t, "Recruiting", locs[0].String("status", ""))
	}
	assert.Nil(t, f.Fragment("keyword"))
	assert.True(t, f.Has("id_info"))
	assert.False(t, f.Has("id_info.org_study_id"))
}

func TestNilFragment(t *testing.T) {
	var f Fragment
	assert.Nil(t, f.Get("a"))
	assert.Equal(t, "d", f.String("a", "d"))
	assert.Empty(t, f.Fragments("a"))
}
