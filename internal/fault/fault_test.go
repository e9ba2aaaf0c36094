package fault_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/fault"
)

func TestFromWrapsPlainErrorsAsTransport(t *testing.T) {
	f := fault.From(context.DeadlineExceeded)
	require.NotNil(t, f)
	assert.Equal(t, fault.Transport, f.Kind)
	assert.ErrorIs(t, f, context.DeadlineExceeded)
}

func TestFromKeepsExistingFault(t *testing.T) {
	orig := fault.NotFoundf("task %d not found", 7)
	wrapped := fmt.Errorf("load: %w", orig)
	assert.Same(t, orig, fault.From(wrapped))
	assert.True(t, fault.IsNotFound(wrapped))
}

func TestErrorIncludesFieldErrors(t *testing.T) {
	f := fault.Rejectedf("record rejected").WithFields(
		fault.FieldError{FieldLabel: "title", Message: "is required"},
		fault.FieldError{FieldLabel: "priority", Message: "unknown value"},
	)
	assert.Equal(t, "record rejected (title: is required; priority: unknown value)", f.Error())
}

func TestIsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("x: %w", fault.Validationf("title is required"))
	assert.True(t, errors.Is(err, &fault.Fault{Kind: fault.Validation}))
	assert.False(t, errors.Is(err, &fault.Fault{Kind: fault.Transport}))
}

func TestKindOfNil(t *testing.T) {
	assert.Equal(t, fault.Kind(""), fault.KindOf(nil))
	assert.Nil(t, fault.From(nil))
}
