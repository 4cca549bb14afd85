// ABOUTME: This file defines product, variant and inventory records from the Cafe24 Admin API
// ABOUTME: Only the bounded field set requested by default is modelled; unknown fields are dropped

package models

import "strings"

// Cafe24 boolean flags are the strings "T" and "F".
const (
	FlagTrue  = "T"
	FlagFalse = "F"
)

// LowStockThreshold marks products counted as low stock in page statistics.
const LowStockThreshold = 10

// Product is one catalog entry. Prices arrive as integer strings (KRW has no
// minor unit on this API).
type Product struct {
	ProductNo          int    `json:"product_no"`
	ProductCode        string `json:"product_code"`
	CustomProductCode  string `json:"custom_product_code"`
	ProductName        string `json:"product_name"`
	ModelName          string `json:"model_name"`
	Price              string `json:"price"`
	RetailPrice        string `json:"retail_price"`
	SupplyPrice        string `json:"supply_price"`
	Display            string `json:"display"`
	Selling            string `json:"selling"`
	HasOption          string `json:"has_option"`
	Quantity           int    `json:"quantity"`
	TaxType            string `json:"tax_type"`
	SummaryDescription string `json:"summary_description"`
	ProductTag         string `json:"product_tag"`
	BrandCode          string `json:"brand_code"`
	ManufacturerCode   string `json:"manufacturer_code"`
	SupplierCode       string `json:"supplier_code"`
	MadeInCode         string `json:"made_in_code"`
	CreatedDate        string `json:"created_date"`
	UpdatedDate        string `json:"updated_date"`
}

// IsDisplayed reports whether the product is visible in the shop front.
func (p *Product) IsDisplayed() bool { return p.Display == FlagTrue }

// HasVariants reports whether option-level variants exist for the product.
func (p *Product) HasVariants() bool { return p.HasOption == FlagTrue }

// ProductPatch is the mutable subset of product fields accepted by the
// upstream update endpoint. Nil fields are omitted from the request.
type ProductPatch struct {
	Price       *string `json:"price,omitempty"`
	SupplyPrice *string `json:"supply_price,omitempty"`
	RetailPrice *string `json:"retail_price,omitempty"`
	Display     *string `json:"display,omitempty"`
	Selling     *string `json:"selling,omitempty"`
	Quantity    *int    `json:"quantity,omitempty"`
}

// IsEmpty reports whether the patch carries no changes.
func (p *ProductPatch) IsEmpty() bool {
	return p.Price == nil && p.SupplyPrice == nil && p.RetailPrice == nil &&
		p.Display == nil && p.Selling == nil && p.Quantity == nil
}

// ProductCreate carries the fields accepted when registering a new product.
type ProductCreate struct {
	ProductName        string `json:"product_name"`
	Price              string `json:"price"`
	SupplyPrice        string `json:"supply_price,omitempty"`
	RetailPrice        string `json:"retail_price,omitempty"`
	Display            string `json:"display,omitempty"`
	Selling            string `json:"selling,omitempty"`
	ModelName          string `json:"model_name,omitempty"`
	SummaryDescription string `json:"summary_description,omitempty"`
	TaxType            string `json:"tax_type,omitempty"`
	ProductTag         string `json:"product_tag,omitempty"`
	CustomProductCode  string `json:"custom_product_code,omitempty"`
}

// Variant is an option-level sub-record with its own price and stock.
type Variant struct {
	VariantCode string `json:"variant_code"`
	Price       string `json:"price"`
	Display     string `json:"display"`
	Selling     string `json:"selling"`
	Quantity    int    `json:"quantity"`
}

// Inventory is the stock record for one product.
type Inventory struct {
	ProductNo int `json:"product_no"`
	Quantity  int `json:"quantity"`
	SafetyQty int `json:"safety_inventory"`
}

// SortKey selects a product list ordering.
type SortKey string

const (
	SortByPrice       SortKey = "price"
	SortByName        SortKey = "name"
	SortByStock       SortKey = "stock"
	SortByCreatedDate SortKey = "created_date"
	SortByUpdatedDate SortKey = "updated_date"
)

// SortOrder is asc or desc.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ValidSortKey reports whether k is one of the supported sort keys.
func ValidSortKey(k SortKey) bool {
	switch k {
	case SortByPrice, SortByName, SortByStock, SortByCreatedDate, SortByUpdatedDate:
		return true
	}
	return false
}

// ProductFilter narrows a product listing. Multi-value code filters are
// comma-joined on the wire; Search is always applied client-side.
type ProductFilter struct {
	ProductCode  string
	ProductCodes []string
	Display      string
	Selling      string
	CreatedStart string // YYYY-MM-DD
	CreatedEnd   string // YYYY-MM-DD
	Search       string
}

// Page bounds one listing request.
type Page struct {
	Limit  int
	Offset int
}

// Pagination describes the window actually returned and whether more rows
// exist upstream.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ProductStats are derived counts over one returned page, not upstream fields.
type ProductStats struct {
	Total      int `json:"total"`
	OutOfStock int `json:"out_of_stock"`
	LowStock   int `json:"low_stock"`
	Displayed  int `json:"displayed"`
	Hidden     int `json:"hidden"`
}

// ComputeProductStats derives page statistics from the returned products.
func ComputeProductStats(products []Product) ProductStats {
	stats := ProductStats{Total: len(products)}
	for i := range products {
		p := &products[i]
		switch {
		case p.Quantity == 0:
			stats.OutOfStock++
		case p.Quantity < LowStockThreshold:
			stats.LowStock++
		}
		if p.IsDisplayed() {
			stats.Displayed++
		} else {
			stats.Hidden++
		}
	}
	return stats
}

// ProductListResult is one page of products plus derived statistics.
type ProductListResult struct {
	Products   []Product    `json:"products"`
	Pagination Pagination   `json:"pagination"`
	Stats      ProductStats `json:"stats"`
}

// SearchScore ranks a product name against a free-text query: exact match
// scores 100, prefix match 50, substring 20, otherwise 0. Matching is
// case-insensitive.
func SearchScore(name, query string) int {
	if query == "" {
		return 0
	}
	n := strings.ToLower(name)
	q := strings.ToLower(query)
	switch {
	case n == q:
		return 100
	case strings.HasPrefix(n, q):
		return 50
	case strings.Contains(n, q):
		return 20
	}
	return 0
}
