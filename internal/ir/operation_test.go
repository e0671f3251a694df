package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipeline_BuildersDoNotShareBackingArray(t *testing.T) {
	base := NewPipeline().Filter(age.GreaterThan(18))
	a := base.Limit(1)
	b := base.Skip(2)

	assert.Equal(t, "[filter age GREATER_THAN [18] | limit 1]", a.String())
	assert.Equal(t, "[filter age GREATER_THAN [18] | skip 2]", b.String())
	assert.Len(t, base, 1)
}

func TestPipeline_String(t *testing.T) {
	p := NewPipeline().
		Filter(And(age.GreaterThan(18), city.Equal("Oslo"))).
		Sorted(age.Desc()).
		Skip(1).
		Limit(5).
		Then("peek", nil)

	assert.Equal(t,
		"[filter (age GREATER_THAN [18] AND city EQUAL [Oslo]) | sorted age desc | skip 1 | limit 5 | other peek]",
		p.String())
	assert.Equal(t, "other", Describe(Other{}))
	assert.Equal(t, "[]", NewPipeline().String())
}

func TestPipeline_Clone(t *testing.T) {
	assert.Nil(t, Pipeline(nil).Clone())

	p := NewPipeline(Skip{N: 1}, Limit{N: 2})
	c := p.Clone()
	c[0] = Skip{N: 9}
	assert.Equal(t, Skip{N: 1}, p[0])
}

func TestPipeline_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Pipeline
		wantErr string
	}{
		{"valid", NewPipeline().Filter(age.Equal(1)).Sorted(age.Asc()).Skip(0).Limit(0).Then("x", nil), ""},
		{"nil predicate", NewPipeline(Filter{}), "operation 0: filter has nil predicate"},
		{"nil comparator", NewPipeline(Skip{N: 1}, Sorted{}), "operation 1: sorted has nil comparator"},
		{"negative skip", NewPipeline(Skip{N: -1}), "operation 0: skip must be >= 0, got -1"},
		{"negative limit", NewPipeline(Limit{N: -2}), "operation 0: limit must be >= 0, got -2"},
		{"nil operation", Pipeline{nil}, "operation 0: nil operation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestRow_Get(t *testing.T) {
	r := Row{"age": int64(3)}
	assert.Equal(t, int64(3), r.Get(age))
	assert.Nil(t, r.Get(city))
}
