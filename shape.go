package interceptz

import "fmt"

// Shape identifies the kind of operation a call performs. The set is closed:
// a value or a sequence, produced synchronously or asynchronously, either
// directly or as a compiled callable that is invoked later.
//
// Shapes are chosen by the entry point the caller uses and the wrapper type it
// asks for, never by inspecting data. They form half of the chain cache key.
type Shape uint8

// Operation shapes.
const (
	ShapeValue Shape = iota
	ShapeSequence
	ShapeAsyncValue
	ShapeAsyncSequence
	ShapeCompiledValue
	ShapeCompiledSequence
	ShapeCompiledAsyncValue
	ShapeCompiledAsyncSequence

	shapeCount
)

var shapeNames = [shapeCount]string{
	ShapeValue:                 "value",
	ShapeSequence:              "sequence",
	ShapeAsyncValue:            "async_value",
	ShapeAsyncSequence:         "async_sequence",
	ShapeCompiledValue:         "compiled_value",
	ShapeCompiledSequence:      "compiled_sequence",
	ShapeCompiledAsyncValue:    "compiled_async_value",
	ShapeCompiledAsyncSequence: "compiled_async_sequence",
}

// Shapes returns all eight shapes in declaration order.
func Shapes() []Shape {
	out := make([]Shape, 0, shapeCount)
	for s := ShapeValue; s < shapeCount; s++ {
		out = append(out, s)
	}
	return out
}

// String returns the snake_case name used in metrics tags and logs.
func (s Shape) String() string {
	if !s.Valid() {
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
	return shapeNames[s]
}

// Valid reports whether s is one of the eight known shapes.
func (s Shape) Valid() bool {
	return s < shapeCount
}

// IsAsync reports whether calls of this shape carry a context.
func (s Shape) IsAsync() bool {
	switch s {
	case ShapeAsyncValue, ShapeAsyncSequence, ShapeCompiledAsyncValue, ShapeCompiledAsyncSequence:
		return true
	}
	return false
}

// IsSequence reports whether the shape produces many items.
func (s Shape) IsSequence() bool {
	switch s {
	case ShapeSequence, ShapeAsyncSequence, ShapeCompiledSequence, ShapeCompiledAsyncSequence:
		return true
	}
	return false
}

// IsCompiled reports whether dispatch returns a reusable callable instead of a result.
func (s Shape) IsCompiled() bool {
	return s >= ShapeCompiledValue && s < shapeCount
}
