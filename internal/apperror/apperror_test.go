package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = errors.New("inventory service error")

func TestKindOf_WrappedChain(t *testing.T) {
	base := BusinessLogic("DUPLICATE_SKU", "sku already exists").Wrap(errSentinel)
	wrapped := fmt.Errorf("create part: %w", base)

	assert.Equal(t, KindBusinessLogic, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindBusinessLogic))
	assert.True(t, errors.Is(wrapped, errSentinel))

	var ae *Error
	require.True(t, errors.As(wrapped, &ae))
	assert.Equal(t, "DUPLICATE_SKU", ae.Details["rule"])
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInternal))
}

func TestNotFound_Details(t *testing.T) {
	e := NotFound("Machine", 42)
	assert.Equal(t, "NOT_FOUND", e.Code)
	assert.Equal(t, "Machine not found (ID: 42)", e.Error())
	assert.Equal(t, "42", e.Details["resource_id"])
}

func TestStateTransition_Details(t *testing.T) {
	e := StateTransition("worksheet", "Closed", "Open")
	assert.Equal(t, KindStateTransition, e.Kind)
	assert.Equal(t, "Closed", e.Details["current_state"])
	assert.Equal(t, "Open", e.Details["target_state"])
}
