package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	pgxDup := &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx duplicate", err: pgxDup, want: true},
		{name: "pgx duplicate matching constraint", err: pgxDup, constraint: "orders_order_number_key", want: true},
		{name: "pgx duplicate other constraint", err: pgxDup, constraint: "orders_pkey", want: false},
		{name: "pgx wrapped", err: fmt.Errorf("insert: %w", pgxDup), want: true},
		{name: "pgx non unique code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: orders.order_number"), want: true},
		{name: "plain message", err: errors.New("duplicate key value violates unique constraint"), want: true},
		{name: "unrelated", err: errors.New("connection reset"), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsUniqueViolation(tc.err, tc.constraint))
		})
	}
}
