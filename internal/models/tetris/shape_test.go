package tetris

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateClockwise(t *testing.T) {
	l := Shape{
		{1, 1, 1},
		{1, 0, 0},
	}

	rotated := l.RotateClockwise()

	assert.Equal(t, Shape{
		{1, 1},
		{0, 1},
		{0, 1},
	}, rotated)
	// レシーバは変更されない
	assert.Equal(t, Shape{{1, 1, 1}, {1, 0, 0}}, l)
}

func TestRotateClockwise_FourTimesIsIdentity(t *testing.T) {
	catalog := DefaultCatalog()
	for i := 0; i < catalog.Len(); i++ {
		def := catalog.Definition(i)
		s := def.Shape
		for n := 0; n < 4; n++ {
			s = s.RotateClockwise()
		}
		assert.True(t, def.Shape.Equal(s), "piece %s should return to its original orientation", def.Name)
	}
}

func TestRotateClockwise_SingleRow(t *testing.T) {
	i := Shape{{1, 1, 1, 1}}

	rotated := i.RotateClockwise()

	assert.Equal(t, 1, rotated.Width())
	assert.Equal(t, 4, rotated.Height())
	assert.Equal(t, Shape{{1}, {1}, {1}, {1}}, rotated)
}

func TestShapeCopy_IsIndependent(t *testing.T) {
	original := Shape{{0, 1}, {1, 1}}
	dup := original.Copy()

	dup[0][0] = 1
	dup[1] = []int{0, 0}

	assert.Equal(t, Shape{{0, 1}, {1, 1}}, original)
}

func TestShapeValidate(t *testing.T) {
	tests := []struct {
		name  string
		shape Shape
		want  error
	}{
		{name: "valid", shape: Shape{{1, 0}, {1, 1}}},
		{name: "no rows", shape: Shape{}, want: ErrEmptyShape},
		{name: "no columns", shape: Shape{{}}, want: ErrEmptyShape},
		{name: "ragged", shape: Shape{{1, 1}, {1}}, want: ErrRaggedShape},
		{name: "non binary", shape: Shape{{1, 2}}, want: ErrNonBinaryCell},
		{name: "no occupied cells", shape: Shape{{0, 0}, {0, 0}}, want: ErrEmptyShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shape.Validate()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestShapeFitsBoard(t *testing.T) {
	assert.NoError(t, Shape{{1, 1, 1, 1}}.FitsBoard())
	assert.NoError(t, Shape{filledRow(BoardWidth)}.FitsBoard())
	assert.ErrorIs(t, Shape{filledRow(BoardWidth + 1)}.FitsBoard(), ErrShapeTooLarge)
}

func TestShapeBlocks(t *testing.T) {
	s := Shape{{0, 1, 0}, {1, 1, 1}}

	assert.Equal(t, [][2]int{{1, 0}, {0, 1}, {1, 1}, {2, 1}}, s.Blocks())
}
