package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/denizkaplan/lunera-backend/pkg/errors"
)

// ProductSnapshot is the trusted view of a product the order builder copies
// onto order items. Prices here come from the catalog, never from the client.
type ProductSnapshot struct {
	ID       uuid.UUID
	Title    string
	Subtitle *string
	Image    *string
	Price    decimal.Decimal
	InStock  bool
	StockQty int
}

// Service answers price and availability questions from the catalog.
type Service interface {
	// PriceOf returns the authoritative price for a product. The bool reports
	// whether the product exists; unknown ids are not an error.
	PriceOf(ctx context.Context, productID uuid.UUID) (decimal.Decimal, bool, error)
	// Availability batch-loads snapshots for the given ids. Missing ids are
	// simply absent from the result map.
	Availability(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductSnapshot, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) PriceOf(ctx context.Context, productID uuid.UUID) (decimal.Decimal, bool, error) {
	if productID == uuid.Nil {
		return decimal.Zero, false, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product.Price, true, nil
}

func (s *service) Availability(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductSnapshot, error) {
	products, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	result := make(map[uuid.UUID]ProductSnapshot, len(products))
	for _, p := range products {
		result[p.ID] = ProductSnapshot{
			ID:       p.ID,
			Title:    p.Title,
			Subtitle: p.Subtitle,
			Image:    p.Image,
			Price:    p.Price,
			InStock:  p.InStock,
			StockQty: p.StockQty,
		}
	}
	return result, nil
}
