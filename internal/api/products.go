package api

import (
	"context"

	"github.com/sajilostore/storefront/internal/model"
)

// ProductsClient reads the product catalog. Admin-side writes go through
// Mutation instances owned by the back-office screens.
type ProductsClient struct {
	client *Client
}

// List fetches the full catalog.
func (p *ProductsClient) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := p.client.getJSON(ctx, "/api/products/product", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Get fetches one product by id.
func (p *ProductsClient) Get(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	if err := p.client.getJSON(ctx, "/api/products/product/"+id, nil, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CategoriesClient reads product categories.
type CategoriesClient struct {
	client *Client
}

// List fetches all categories.
func (c *CategoriesClient) List(ctx context.Context) ([]model.Category, error) {
	var categories []model.Category
	if err := c.client.getJSON(ctx, "/api/categories/category", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
