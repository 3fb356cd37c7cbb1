package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFor(t *testing.T) {
	tests := []struct {
		name       string
		code       Code
		wantStatus int
		retryable  bool
	}{
		{name: "validation", code: CodeValidation, wantStatus: http.StatusBadRequest},
		{name: "not found", code: CodeNotFound, wantStatus: http.StatusNotFound},
		{name: "forbidden", code: CodeForbidden, wantStatus: http.StatusForbidden},
		{name: "state conflict", code: CodeStateConflict, wantStatus: http.StatusUnprocessableEntity},
		{name: "gateway", code: CodeGateway, wantStatus: http.StatusBadGateway, retryable: true},
		{name: "unknown falls back to internal", code: Code("NOPE"), wantStatus: http.StatusInternalServerError, retryable: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			meta := MetadataFor(tc.code)
			assert.Equal(t, tc.wantStatus, meta.HTTPStatus)
			assert.Equal(t, tc.retryable, meta.Retryable)
		})
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "payment provider call failed")

	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeDependency, err.Code())
	assert.Equal(t, "DEPENDENCY_ERROR: payment provider call failed", err.Error())
}

func TestAsThroughChain(t *testing.T) {
	inner := New(CodeStateConflict, "order already delivered")
	wrapped := Wrap(CodeInternal, inner, "transition rejected")

	typed := As(wrapped)
	require.NotNil(t, typed)
	assert.Equal(t, CodeInternal, typed.Code())

	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(nil, CodeInternal))
}

func TestWithDetails(t *testing.T) {
	err := New(CodeValidation, "stock unavailable").
		WithDetails([]string{"Walnut Desk", "Oak Shelf"})

	assert.Equal(t, []string{"Walnut Desk", "Oak Shelf"}, err.Details())
}

func TestDumpExtractsPGError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "orders_order_number_key",
		TableName:      "orders",
	}
	err := Wrap(CodeConflict, pgErr, "insert failed")

	dump := Dump(err)
	assert.Equal(t, CodeConflict, dump.Code)
	assert.Equal(t, "23505", dump.PGCode)
	assert.Equal(t, "orders_order_number_key", dump.PGConstraint)
	assert.Equal(t, "orders", dump.PGTable)
	assert.Len(t, dump.Chain, 2)
}

func TestDumpNil(t *testing.T) {
	assert.Equal(t, ErrorDump{}, Dump(nil))
}
