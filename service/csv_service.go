// ABOUTME: This file implements CSV template export and import of the product catalog
// ABOUTME: Exports are UTF-8 with BOM; imports accept UTF-8 or EUC-KR encoded templates
package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"cafe24-admin/models"
)

// utf8BOM prefixes exported files so spreadsheet tools pick the right encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CatalogExchange is the subset of catalog operations the CSV exchange needs.
type CatalogExchange interface {
	ListAllProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter, sortKey models.SortKey, order models.SortOrder, page models.Page) (*models.ProductListResult, error)
	UpdateProduct(ctx context.Context, productNo int, patch models.ProductPatch) ([]byte, error)
	CreateProduct(ctx context.Context, create models.ProductCreate) (*models.Product, error)
}

// CSVService interchanges products with the upstream's native CSV template.
type CSVService struct {
	catalog CatalogExchange
	logger  *slog.Logger
}

// NewCSVService creates a CSV exchange service over the given catalog.
func NewCSVService(catalog CatalogExchange, logger *slog.Logger) *CSVService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVService{catalog: catalog, logger: logger}
}

// ExportProducts renders the filtered catalog as a template CSV, one row per
// product, in the template's exact column order.
func (s *CSVService) ExportProducts(ctx context.Context, filter models.ProductFilter) ([]byte, error) {
	products, err := s.catalog.ListAllProducts(ctx, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(TemplateColumns); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i := range products {
		if err := w.Write(templateRow(&products[i])); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	s.logger.Info("Exported product CSV", "rows", len(products), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// ImportProducts parses a template CSV and applies each row: rows whose
// product code carries the upstream prefix update the existing product,
// all other rows create a new one. Row failures never abort the import.
func (s *CSVService) ImportProducts(ctx context.Context, data []byte) (*models.CSVImportSummary, error) {
	decoded, err := decodeCSVBytes(data)
	if err != nil {
		return nil, &models.APIError{
			Kind:    models.ErrKindValidation,
			Message: fmt.Sprintf("unreadable CSV encoding: %v", err),
			Err:     err,
		}
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, models.NewValidationError("CSV has no header row")
	}
	idx := indexHeader(header)

	summary := &models.CSVImportSummary{}
	rowNum := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			summary.Total++
			s.recordFailure(summary, rowNum, "", fmt.Sprintf("malformed row: %v", err))
			continue
		}

		summary.Total++
		code := idx.cell(row, colProductCode)

		if len(code) > 0 && code[:1] == ProductCodePrefix {
			if err := s.importUpdate(ctx, idx, row, code); err != nil {
				s.recordFailure(summary, rowNum, code, err.Error())
				continue
			}
			summary.Updated++
		} else {
			if err := s.importCreate(ctx, idx, row); err != nil {
				s.recordFailure(summary, rowNum, code, err.Error())
				continue
			}
			summary.Created++
		}
	}

	s.logger.Info("Imported product CSV",
		"total", summary.Total,
		"created", summary.Created,
		"updated", summary.Updated,
		"failed", summary.Failed)
	return summary, nil
}

// importUpdate resolves an existing product by code and applies the row's
// mutable fields as a patch.
func (s *CSVService) importUpdate(ctx context.Context, idx headerIndex, row []string, code string) error {
	listing, err := s.catalog.ListProducts(ctx,
		models.ProductFilter{ProductCode: code}, "", "", models.Page{Limit: 1})
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	if len(listing.Products) == 0 {
		return fmt.Errorf("no product with code %s", code)
	}
	productNo := listing.Products[0].ProductNo

	var patch models.ProductPatch
	if cell := idx.cell(row, colPrice); cell != "" {
		price, err := priceFromCSV(cell)
		if err != nil {
			return err
		}
		patch.Price = &price
	}
	if cell := idx.cell(row, colRetailPrice); cell != "" {
		price, err := priceFromCSV(cell)
		if err != nil {
			return err
		}
		patch.RetailPrice = &price
	}
	if cell := idx.cell(row, colSupplyPrice); cell != "" {
		price, err := priceFromCSV(cell)
		if err != nil {
			return err
		}
		patch.SupplyPrice = &price
	}
	if flag := flagFromCSV(idx.cell(row, colDisplay)); flag != "" {
		patch.Display = &flag
	}
	if flag := flagFromCSV(idx.cell(row, colSelling)); flag != "" {
		patch.Selling = &flag
	}
	if patch.IsEmpty() {
		return fmt.Errorf("row carries no updatable fields")
	}

	if _, err := s.catalog.UpdateProduct(ctx, productNo, patch); err != nil {
		return fmt.Errorf("update failed: %w", err)
	}
	return nil
}

// importCreate registers a new product from the row. product_name and price
// are required.
func (s *CSVService) importCreate(ctx context.Context, idx headerIndex, row []string) error {
	name := idx.cell(row, colProductName)
	if name == "" {
		return fmt.Errorf("missing required column %s", colProductName)
	}
	rawPrice := idx.cell(row, colPrice)
	if rawPrice == "" {
		return fmt.Errorf("missing required column %s", colPrice)
	}
	price, err := priceFromCSV(rawPrice)
	if err != nil {
		return err
	}

	create := models.ProductCreate{
		ProductName:        name,
		Price:              price,
		ModelName:          idx.cell(row, colModelName),
		SummaryDescription: idx.cell(row, colSummaryDescription),
		TaxType:            taxTypeFromCSV(idx.cell(row, colTaxType)),
		ProductTag:         idx.cell(row, colProductTag),
		CustomProductCode:  idx.cell(row, colCustomProductCode),
	}
	if cell := idx.cell(row, colRetailPrice); cell != "" {
		if v, err := priceFromCSV(cell); err == nil {
			create.RetailPrice = v
		}
	}
	if cell := idx.cell(row, colSupplyPrice); cell != "" {
		if v, err := priceFromCSV(cell); err == nil {
			create.SupplyPrice = v
		}
	}
	create.Display = flagFromCSV(idx.cell(row, colDisplay))
	create.Selling = flagFromCSV(idx.cell(row, colSelling))

	if _, err := s.catalog.CreateProduct(ctx, create); err != nil {
		return fmt.Errorf("create failed: %w", err)
	}
	return nil
}

func (s *CSVService) recordFailure(summary *models.CSVImportSummary, row int, code, detail string) {
	summary.Failed++
	if len(summary.Errors) < models.MaxCSVImportErrors {
		summary.Errors = append(summary.Errors, models.CSVImportError{
			Row:         row,
			ProductCode: code,
			Detail:      detail,
		})
	}
}

// decodeCSVBytes normalises an uploaded template to plain UTF-8. A BOM is
// stripped; bytes that are not valid UTF-8 are decoded as EUC-KR, the
// encoding Cafe24's own template downloads use.
func decodeCSVBytes(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("not UTF-8 and EUC-KR decode failed: %w", err)
	}
	return decoded, nil
}
