package validity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colpress/colpress/validity"
)

func TestNewFromBoolsCollapsesToAllValid(t *testing.T) {
	v := validity.NewFromBools([]bool{true, true, true})
	assert.Equal(t, validity.AllValid, v.Kind())
}

func TestNewFromBoolsCollapsesToAllInvalid(t *testing.T) {
	v := validity.NewFromBools([]bool{false, false})
	assert.Equal(t, validity.AllInvalid, v.Kind())
}

func TestNewFromBoolsStaysArrayWhenMixed(t *testing.T) {
	bools := []bool{true, false, true, true, false}
	v := validity.NewFromBools(bools)
	assert.Equal(t, validity.Array, v.Kind())
	for i, want := range bools {
		assert.Equal(t, want, v.IsValid(i))
	}
}

func TestNullCountMatchesPopulation(t *testing.T) {
	bools := []bool{true, false, true, false, false, true, true, false, true}
	v := validity.NewFromBools(bools)
	var want int
	for _, b := range bools {
		if !b {
			want++
		}
	}
	assert.Equal(t, want, v.NullCount())
}

func TestNonNullableIsAlwaysValid(t *testing.T) {
	v := validity.NewNonNullable(10)
	for i := 0; i < 10; i++ {
		assert.True(t, v.IsValid(i))
	}
	assert.Equal(t, 0, v.NullCount())
}

func TestSliceNarrowsRange(t *testing.T) {
	bools := []bool{true, false, true, false, true, false}
	v := validity.NewFromBools(bools)
	s := v.Slice(2, 5)
	assert.Equal(t, 3, s.Len())
	for i, want := range bools[2:5] {
		assert.Equal(t, want, s.IsValid(i))
	}
}
