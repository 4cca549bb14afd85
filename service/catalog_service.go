// ABOUTME: This file implements typed product catalog operations over the Cafe24 Admin API
// ABOUTME: Listing supports filters, sort, client-side search and derived page statistics
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"cafe24-admin/models"
)

const (
	// MaxListLimit is the largest page size the upstream accepts.
	MaxListLimit = 10000
	// ListAllPageSize is the page size used when draining the full catalog.
	ListAllPageSize = 100
)

// Transport abstracts the authenticated request gateway for resource services.
type Transport interface {
	Do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error)
}

// CatalogService exposes product, variant and inventory operations.
type CatalogService struct {
	transport Transport
	logger    *slog.Logger
}

// NewCatalogService creates a catalog service over the given transport.
func NewCatalogService(transport Transport, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{transport: transport, logger: logger}
}

type productListResponse struct {
	Products []models.Product `json:"products"`
}

type productResponse struct {
	Product models.Product `json:"product"`
}

type variantListResponse struct {
	Variants []models.Variant `json:"variants"`
}

type inventoryResponse struct {
	Inventory models.Inventory `json:"inventory"`
}

// ListProducts returns one page of products with derived statistics. Sort keys
// the upstream does not understand and the free-text search are applied to the
// returned page client-side.
func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter, sortKey models.SortKey, order models.SortOrder, page models.Page) (*models.ProductListResult, error) {
	if page.Limit < 1 || page.Limit > MaxListLimit {
		return nil, models.NewValidationError("limit must be between 1 and %d, got %d", MaxListLimit, page.Limit)
	}
	if page.Offset < 0 {
		return nil, models.NewValidationError("offset must not be negative, got %d", page.Offset)
	}
	if sortKey != "" && !models.ValidSortKey(sortKey) {
		return nil, models.NewValidationError("unsupported sort key %q", sortKey)
	}
	if order != "" && order != models.SortAsc && order != models.SortDesc {
		return nil, models.NewValidationError("sort order must be asc or desc, got %q", order)
	}
	if err := validateDateFilter(filter.CreatedStart, filter.CreatedEnd); err != nil {
		return nil, err
	}
	if order == "" {
		order = models.SortAsc
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(page.Limit))
	query.Set("offset", strconv.Itoa(page.Offset))
	if filter.ProductCode != "" {
		query.Set("product_code", filter.ProductCode)
	}
	if len(filter.ProductCodes) > 0 {
		query.Set("product_code", strings.Join(filter.ProductCodes, ","))
	}
	if filter.Display != "" {
		query.Set("display", filter.Display)
	}
	if filter.Selling != "" {
		query.Set("selling", filter.Selling)
	}
	if filter.CreatedStart != "" {
		query.Set("created_start_date", filter.CreatedStart)
	}
	if filter.CreatedEnd != "" {
		query.Set("created_end_date", filter.CreatedEnd)
	}
	// The upstream sorts by date keys natively; price, name and stock are
	// sorted client-side below.
	if sortKey == models.SortByCreatedDate || sortKey == models.SortByUpdatedDate {
		query.Set("sort", string(sortKey))
		query.Set("order", string(order))
	}

	body, err := s.transport.Do(ctx, "list_products", "GET", "/admin/products", query, nil)
	if err != nil {
		return nil, err
	}

	var resp productListResponse
	if err := DecodeJSON("list_products", body, &resp); err != nil {
		return nil, err
	}
	products := resp.Products

	if filter.Search != "" {
		products = filterBySearch(products, filter.Search)
	}
	switch sortKey {
	case models.SortByPrice, models.SortByName, models.SortByStock:
		sortProducts(products, sortKey, order)
	}

	return &models.ProductListResult{
		Products: products,
		Pagination: models.Pagination{
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: len(resp.Products) == page.Limit,
		},
		Stats: models.ComputeProductStats(products),
	}, nil
}

// ListAllProducts drains the catalog page by page until a short page or the
// hard cap is reached.
func (s *CatalogService) ListAllProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	var all []models.Product
	offset := 0
	for {
		result, err := s.ListProducts(ctx, filter, "", "", models.Page{Limit: ListAllPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, result.Products...)
		if len(result.Products) < ListAllPageSize || len(all) >= MaxListLimit {
			break
		}
		offset += ListAllPageSize
	}
	s.logger.Debug("Drained product catalog", "count", len(all))
	return all, nil
}

// GetProduct fetches one product by its numeric id.
func (s *CatalogService) GetProduct(ctx context.Context, productNo int) (*models.Product, error) {
	if productNo <= 0 {
		return nil, models.NewValidationError("product number must be positive, got %d", productNo)
	}

	body, err := s.transport.Do(ctx, "get_product", "GET",
		fmt.Sprintf("/admin/products/%d", productNo), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp productResponse
	if err := DecodeJSON("get_product", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// UpdateProduct applies a partial update to one product and returns the raw
// upstream response body.
func (s *CatalogService) UpdateProduct(ctx context.Context, productNo int, patch models.ProductPatch) ([]byte, error) {
	if productNo <= 0 {
		return nil, models.NewValidationError("product number must be positive, got %d", productNo)
	}
	if patch.IsEmpty() {
		return nil, models.NewValidationError("product patch carries no changes")
	}

	payload := map[string]any{
		"request": map[string]any{"product": patch},
	}
	return s.transport.Do(ctx, "update_product", "PUT",
		fmt.Sprintf("/admin/products/%d", productNo), nil, payload)
}

// CreateProduct registers a new product and returns the created record.
func (s *CatalogService) CreateProduct(ctx context.Context, create models.ProductCreate) (*models.Product, error) {
	if create.ProductName == "" {
		return nil, models.NewValidationError("product_name is required")
	}
	if create.Price == "" {
		return nil, models.NewValidationError("price is required")
	}

	payload := map[string]any{
		"request": map[string]any{"product": create},
	}
	body, err := s.transport.Do(ctx, "create_product", "POST", "/admin/products", nil, payload)
	if err != nil {
		return nil, err
	}

	var resp productResponse
	if err := DecodeJSON("create_product", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Product, nil
}

// ListVariants returns the option-level variants of one product.
func (s *CatalogService) ListVariants(ctx context.Context, productNo int) ([]models.Variant, error) {
	if productNo <= 0 {
		return nil, models.NewValidationError("product number must be positive, got %d", productNo)
	}

	body, err := s.transport.Do(ctx, "list_variants", "GET",
		fmt.Sprintf("/admin/products/%d/variants", productNo), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp variantListResponse
	if err := DecodeJSON("list_variants", body, &resp); err != nil {
		return nil, err
	}
	return resp.Variants, nil
}

// UpdateVariantPrice sets the price of one variant.
func (s *CatalogService) UpdateVariantPrice(ctx context.Context, productNo int, variantCode, price string) ([]byte, error) {
	if productNo <= 0 {
		return nil, models.NewValidationError("product number must be positive, got %d", productNo)
	}
	if variantCode == "" {
		return nil, models.NewValidationError("variant code is required")
	}

	payload := map[string]any{
		"request": map[string]any{"variant": map[string]string{"price": price}},
	}
	return s.transport.Do(ctx, "update_variant_price", "PUT",
		fmt.Sprintf("/admin/products/%d/variants/%s", productNo, url.PathEscape(variantCode)), nil, payload)
}

// GetInventory fetches the stock record for one product.
func (s *CatalogService) GetInventory(ctx context.Context, productNo int) (*models.Inventory, error) {
	if productNo <= 0 {
		return nil, models.NewValidationError("product number must be positive, got %d", productNo)
	}

	body, err := s.transport.Do(ctx, "get_inventory", "GET",
		fmt.Sprintf("/admin/products/%d/inventory", productNo), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp inventoryResponse
	if err := DecodeJSON("get_inventory", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Inventory, nil
}

// filterBySearch keeps products whose display name matches the query,
// ordered by relevance. Ties keep the upstream order.
func filterBySearch(products []models.Product, query string) []models.Product {
	type scored struct {
		product models.Product
		score   int
		index   int
	}
	var matched []scored
	for i, p := range products {
		if score := models.SearchScore(p.ProductName, query); score > 0 {
			matched = append(matched, scored{product: p, score: score, index: i})
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].index < matched[j].index
	})
	result := make([]models.Product, len(matched))
	for i, m := range matched {
		result[i] = m.product
	}
	return result
}

// sortProducts orders a page in place by a key the upstream cannot sort on.
func sortProducts(products []models.Product, key models.SortKey, order models.SortOrder) {
	less := func(i, j int) bool {
		switch key {
		case models.SortByPrice:
			return priceValue(products[i].Price) < priceValue(products[j].Price)
		case models.SortByStock:
			return products[i].Quantity < products[j].Quantity
		default:
			return products[i].ProductName < products[j].ProductName
		}
	}
	if order == models.SortDesc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(products, less)
}

func priceValue(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// validateDateFilter checks YYYY-MM-DD bounds and their ordering.
func validateDateFilter(start, end string) error {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = time.Parse("2006-01-02", start); err != nil {
			return models.NewValidationError("invalid start date %q: expected YYYY-MM-DD", start)
		}
	}
	if end != "" {
		if to, err = time.Parse("2006-01-02", end); err != nil {
			return models.NewValidationError("invalid end date %q: expected YYYY-MM-DD", end)
		}
	}
	if start != "" && end != "" && from.After(to) {
		return models.NewValidationError("start date %s is after end date %s", start, end)
	}
	return nil
}
