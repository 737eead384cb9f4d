package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CatalogService serves product and variant reads.
type CatalogService struct {
	products ProductReader
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(products ProductReader) *CatalogService {
	return &CatalogService{products: products}
}

// GetProduct returns a product with its variants.
func (s *CatalogService) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, utils.NotFoundError(utils.CodeProductNotFound, "product %d not found", id)
		}
		return nil, fmt.Errorf("load product: %w", err)
	}
	return p, nil
}

// GetVariant returns one variant of a product with the product it belongs to.
func (s *CatalogService) GetVariant(ctx context.Context, productID int, sku string) (*models.Product, *models.Variant, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	v, ok := p.Variants.BySKU(sku)
	if !ok {
		return nil, nil, utils.NotFoundError(utils.CodeVariantNotFound, "product %q has no variant %q", p.Name, sku)
	}
	return p, v, nil
}
