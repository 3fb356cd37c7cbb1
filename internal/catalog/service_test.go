package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/denizkaplan/lunera-backend/pkg/db/models"
)

type stubRepo struct {
	byID    map[uuid.UUID]*models.Product
	findErr error
}

func (s *stubRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	var out []models.Product
	for _, id := range ids {
		if p, ok := s.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func TestPriceOf(t *testing.T) {
	known := uuid.New()
	repo := &stubRepo{byID: map[uuid.UUID]*models.Product{
		known: {ID: known, Title: "Walnut Desk", Price: decimal.RequireFromString("275.00")},
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	price, found, err := svc.PriceOf(context.Background(), known)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, price.Equal(decimal.RequireFromString("275.00")))

	_, found, err = svc.PriceOf(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = svc.PriceOf(context.Background(), uuid.Nil)
	assert.Error(t, err)
}

func TestPriceOf_RepoError(t *testing.T) {
	repo := &stubRepo{findErr: errors.New("connection lost")}
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, _, err = svc.PriceOf(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestAvailability_MissingIDsAbsent(t *testing.T) {
	known := uuid.New()
	repo := &stubRepo{byID: map[uuid.UUID]*models.Product{
		known: {ID: known, Title: "Oak Shelf", Price: decimal.NewFromInt(120), InStock: true, StockQty: 3},
	}}
	svc, err := NewService(repo)
	require.NoError(t, err)

	missing := uuid.New()
	result, err := svc.Availability(context.Background(), []uuid.UUID{known, missing})
	require.NoError(t, err)

	require.Len(t, result, 1)
	snap, ok := result[known]
	require.True(t, ok)
	assert.Equal(t, "Oak Shelf", snap.Title)
	assert.True(t, snap.InStock)
	_, ok = result[missing]
	assert.False(t, ok)
}
