// ABOUTME: This file implements the bulk price applier over the catalog operations
// ABOUTME: Each item resolves a product code, updates base and variant prices and records an outcome
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"cafe24-admin/models"
)

// Catalog is the subset of catalog operations the bulk applier needs.
type Catalog interface {
	ListProducts(ctx context.Context, filter models.ProductFilter, sortKey models.SortKey, order models.SortOrder, page models.Page) (*models.ProductListResult, error)
	ListVariants(ctx context.Context, productNo int) ([]models.Variant, error)
	UpdateProduct(ctx context.Context, productNo int, patch models.ProductPatch) ([]byte, error)
	UpdateVariantPrice(ctx context.Context, productNo int, variantCode, price string) ([]byte, error)
}

// BulkPriceService applies a batch of price changes, one item at a time, in
// input order. A failure on one item never aborts the rest.
type BulkPriceService struct {
	catalog Catalog
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewBulkPriceService creates a bulk price applier. requestsPerSecond > 0
// paces upstream calls; zero disables pacing.
func NewBulkPriceService(catalog Catalog, requestsPerSecond float64, logger *slog.Logger) *BulkPriceService {
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &BulkPriceService{catalog: catalog, limiter: limiter, logger: logger}
}

// ApplyPrices processes the items sequentially and returns one outcome per
// input item, in input order.
func (s *BulkPriceService) ApplyPrices(ctx context.Context, items []models.BulkPriceItem) (*models.BulkApplyResult, error) {
	if len(items) == 0 {
		return nil, models.NewValidationError("no items to apply")
	}

	result := &models.BulkApplyResult{
		JobID:    uuid.NewString(),
		Total:    len(items),
		Outcomes: make([]models.BulkUpdateOutcome, 0, len(items)),
	}

	s.logger.Info("Starting bulk price apply", "job_id", result.JobID, "items", len(items))

	for _, item := range items {
		outcome := s.applyOne(ctx, item)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Status == models.BulkOK {
			result.OKCount++
		} else {
			result.FailedCount++
		}
	}

	s.logger.Info("Bulk price apply finished",
		"job_id", result.JobID,
		"ok", result.OKCount,
		"failed", result.FailedCount)
	return result, nil
}

func (s *BulkPriceService) applyOne(ctx context.Context, item models.BulkPriceItem) models.BulkUpdateOutcome {
	outcome := models.BulkUpdateOutcome{
		ProductCode:    item.ProductCode,
		RequestedPrice: item.Price,
	}

	price, err := models.NormalizePrice(item.Price)
	if err != nil {
		outcome.Status = models.BulkRejected
		outcome.Detail = err.Error()
		return outcome
	}
	outcome.RequestedPrice = price

	if err := s.pace(ctx); err != nil {
		outcome.Status = models.BulkTransportError
		outcome.Detail = "cancelled before lookup"
		return outcome
	}

	listing, err := s.catalog.ListProducts(ctx,
		models.ProductFilter{ProductCode: item.ProductCode}, "", "", models.Page{Limit: 1})
	if err != nil {
		outcome.Status = classifyBulkFailure(err)
		outcome.Detail = models.TruncateBody("lookup failed: " + err.Error())
		return outcome
	}
	if len(listing.Products) == 0 {
		outcome.Status = models.BulkNotFound
		outcome.Detail = "no product with this code"
		return outcome
	}
	product := listing.Products[0]

	variantOK := false
	var variantErr error
	if product.HasVariants() {
		variantOK, variantErr = s.updateVariants(ctx, product.ProductNo, price)
	}

	// The base product is always updated as well; the item counts as ok when
	// either the base update or any variant update succeeded.
	var baseErr error
	if err := s.pace(ctx); err != nil {
		baseErr = err
	} else {
		_, baseErr = s.catalog.UpdateProduct(ctx, product.ProductNo, models.ProductPatch{
			Price:       &price,
			RetailPrice: &price,
		})
	}

	if baseErr == nil || variantOK {
		outcome.Status = models.BulkOK
		return outcome
	}

	failure := baseErr
	if failure == nil {
		failure = variantErr
	}
	outcome.Status = classifyBulkFailure(failure)
	outcome.Detail = models.TruncateBody("update failed: " + failure.Error())
	return outcome
}

// updateVariants puts the new price on every variant. It reports true when at
// least one variant accepted the update.
func (s *BulkPriceService) updateVariants(ctx context.Context, productNo int, price string) (bool, error) {
	variants, err := s.catalog.ListVariants(ctx, productNo)
	if err != nil {
		return false, err
	}

	anyOK := false
	var lastErr error
	for _, v := range variants {
		if err := s.pace(ctx); err != nil {
			return anyOK, err
		}
		if _, err := s.catalog.UpdateVariantPrice(ctx, productNo, v.VariantCode, price); err != nil {
			lastErr = err
			s.logger.Warn("Variant price update failed",
				"product_no", productNo, "variant_code", v.VariantCode, "error", err)
			continue
		}
		anyOK = true
	}
	return anyOK, lastErr
}

func (s *BulkPriceService) pace(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func classifyBulkFailure(err error) models.BulkOutcomeStatus {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) && apiErr.Kind == models.ErrKindTransport {
		return models.BulkTransportError
	}
	return models.BulkRejected
}
