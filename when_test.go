package interceptz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	call := Call{Shape: ShapeValue, Type: typeOf[int]()}
	req := JSONRequest(`{"op":"write","table":"widgets","user":{"id":7,"role":"admin"}}`)

	tests := []struct {
		name string
		pred Predicate
		req  Request
		want bool
	}{
		{"HasFields Present", HasFields("op", "user.id"), req, true},
		{"HasFields Missing", HasFields("op", "user.email"), req, false},
		{"HasFields Raw Bytes", HasFields("table"), []byte(`{"table":"x"}`), true},
		{"HasFields String", HasFields("table"), `{"table":"x"}`, true},
		{"HasFields Invalid JSON", HasFields("op"), JSONRequest(`{op:`), false},
		{"HasFields Not JSON", HasFields("op"), 42, false},
		{"FieldEquals Match", FieldEquals("user.role", "admin"), req, true},
		{"FieldEquals Mismatch", FieldEquals("op", "read"), req, false},
		{"FieldEquals Non String", FieldEquals("user.id", "7"), req, false},
		{"And", And(HasFields("op"), FieldEquals("op", "write")), req, true},
		{"And Fails", And(HasFields("op"), FieldEquals("op", "read")), req, false},
		{"Or", Or(FieldEquals("op", "read"), FieldEquals("op", "write")), req, true},
		{"Not", Not(FieldEquals("op", "read")), req, true},
		{"OfShape", OfShape(ShapeSequence, ShapeValue), req, true},
		{"OfShape Other", OfShape(ShapeAsyncValue), req, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pred(call, tt.req))
		})
	}
}

func TestWhen(t *testing.T) {
	denied := errors.New("denied")
	deny := Around("deny", func(context.Context, Call, func() error) error { return denied })
	guard := When("guard-writes", FieldEquals("op", "write"), deny)

	p, err := NewPipeline("when", intTerminal(5), guard)
	require.NoError(t, err)

	n, err := Execute[int](p, JSONRequest(`{"op":"read"}`))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	_, err = Execute[int](p, JSONRequest(`{"op":"write"}`))
	assert.Same(t, denied, err)

	_, err = ExecuteAsync[int](context.Background(), p, JSONRequest(`{"op":"write"}`))
	assert.Same(t, denied, err)
}

func TestWhenParticipatesLikeInner(t *testing.T) {
	valueOnly := ValueFunc("value-only", func(_ Call, req Request, next ValueNext) (any, error) {
		return next(req)
	})
	cond := When("cond", HasFields("x"), valueOnly)

	assert.True(t, Participates(cond, Call{Shape: ShapeValue, Type: typeOf[int]()}))
	assert.False(t, Participates(cond, Call{Shape: ShapeSequence, Type: typeOf[int]()}))
	assert.False(t, Participates(cond, Call{Shape: ShapeCompiledAsyncValue, Type: typeOf[int]()}))

	typed := When("typed", HasFields("x"), TypedValue("typed", func(_ Call, req Request, next func(Request) (string, error)) (string, error) {
		return next(req)
	}))
	assert.True(t, Participates(typed, Call{Shape: ShapeValue, Type: typeOf[string]()}))
	assert.False(t, Participates(typed, Call{Shape: ShapeValue, Type: typeOf[int]()}))
}
