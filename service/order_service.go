// ABOUTME: This file implements order and customer listing over the Cafe24 Admin API
// ABOUTME: Order listings are bounded by an inclusive YYYY-MM-DD date range
package service

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"cafe24-admin/models"
)

// OrderService exposes order and customer listing operations.
type OrderService struct {
	transport Transport
	logger    *slog.Logger
}

// NewOrderService creates an order service over the given transport.
func NewOrderService(transport Transport, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{transport: transport, logger: logger}
}

type orderListResponse struct {
	Orders []models.Order `json:"orders"`
}

type customerListResponse struct {
	Customers []models.Customer `json:"customers"`
}

// ListOrders returns orders placed within the inclusive date range.
func (s *OrderService) ListOrders(ctx context.Context, dateRange models.DateRange, page models.Page) ([]models.Order, error) {
	if dateRange.Start == "" || dateRange.End == "" {
		return nil, models.NewValidationError("both start and end dates are required")
	}
	if err := validateDateFilter(dateRange.Start, dateRange.End); err != nil {
		return nil, err
	}
	if page.Limit < 1 || page.Limit > MaxListLimit {
		return nil, models.NewValidationError("limit must be between 1 and %d, got %d", MaxListLimit, page.Limit)
	}
	if page.Offset < 0 {
		return nil, models.NewValidationError("offset must not be negative, got %d", page.Offset)
	}

	query := url.Values{}
	query.Set("start_date", dateRange.Start)
	query.Set("end_date", dateRange.End)
	query.Set("limit", strconv.Itoa(page.Limit))
	query.Set("offset", strconv.Itoa(page.Offset))
	query.Set("embed", "items")

	body, err := s.transport.Do(ctx, "list_orders", "GET", "/admin/orders", query, nil)
	if err != nil {
		return nil, err
	}

	var resp orderListResponse
	if err := DecodeJSON("list_orders", body, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ListCustomers returns one page of shop members.
func (s *OrderService) ListCustomers(ctx context.Context, page models.Page) ([]models.Customer, error) {
	if page.Limit < 1 || page.Limit > MaxListLimit {
		return nil, models.NewValidationError("limit must be between 1 and %d, got %d", MaxListLimit, page.Limit)
	}
	if page.Offset < 0 {
		return nil, models.NewValidationError("offset must not be negative, got %d", page.Offset)
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(page.Limit))
	query.Set("offset", strconv.Itoa(page.Offset))

	body, err := s.transport.Do(ctx, "list_customers", "GET", "/admin/customers", query, nil)
	if err != nil {
		return nil, err
	}

	var resp customerListResponse
	if err := DecodeJSON("list_customers", body, &resp); err != nil {
		return nil, err
	}
	return resp.Customers, nil
}
