package interceptz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShape(t *testing.T) {
	tests := []struct {
		shape    Shape
		name     string
		async    bool
		sequence bool
		compiled bool
	}{
		{ShapeValue, "value", false, false, false},
		{ShapeSequence, "sequence", false, true, false},
		{ShapeAsyncValue, "async_value", true, false, false},
		{ShapeAsyncSequence, "async_sequence", true, true, false},
		{ShapeCompiledValue, "compiled_value", false, false, true},
		{ShapeCompiledSequence, "compiled_sequence", false, true, true},
		{ShapeCompiledAsyncValue, "compiled_async_value", true, false, true},
		{ShapeCompiledAsyncSequence, "compiled_async_sequence", true, true, true},
	}

	assert.Len(t, Shapes(), len(tests))
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.shape, Shapes()[i])
			assert.True(t, tt.shape.Valid())
			assert.Equal(t, tt.name, tt.shape.String())
			assert.Equal(t, tt.async, tt.shape.IsAsync())
			assert.Equal(t, tt.sequence, tt.shape.IsSequence())
			assert.Equal(t, tt.compiled, tt.shape.IsCompiled())
		})
	}

	t.Run("Invalid", func(t *testing.T) {
		s := Shape(200)
		assert.False(t, s.Valid())
		assert.False(t, s.IsCompiled())
		assert.Equal(t, "shape(200)", s.String())
	})
}

func TestCall(t *testing.T) {
	assert.Equal(t, "sequence[int]", Call{Shape: ShapeSequence, Type: TypeOf[int]()}.String())
	assert.Equal(t, "value[<nil>]", Call{Shape: ShapeValue}.String())
	assert.Equal(t, "error", TypeOf[error]().String())
}
