// ABOUTME: This file defines the fixed Cafe24 product upload template layout and its field mapping
// ABOUTME: Column order is preserved verbatim; unrecognised columns round-trip as empty cells
package service

import (
	"strings"

	"cafe24-admin/models"
)

// TemplateColumns is the exact header row of the Cafe24 product upload
// template. The order is fixed; exports emit every column and imports address
// columns by header name.
var TemplateColumns = []string{
	"상품코드",
	"자체 상품코드",
	"진열상태",
	"판매상태",
	"상품분류 번호",
	"상품분류 신상품영역",
	"상품분류 추천상품영역",
	"상품명",
	"영문 상품명",
	"상품명(관리용)",
	"공급사 상품명",
	"모델명",
	"상품 요약설명",
	"상품 간략설명",
	"상품 상세설명",
	"모바일 상품 상세설명",
	"검색어설정",
	"과세구분",
	"소비자가",
	"공급가",
	"상품가",
	"판매가",
	"판매가 대체문구",
	"주문수량 제한 기준",
	"최소 주문수량(이상)",
	"최대 주문수량(이하)",
	"적립금",
	"적립금 구분",
	"공통이벤트 정보",
	"성인인증",
	"옵션사용",
	"품목 구성방식",
	"옵션 표시방식",
	"옵션세트명",
	"옵션입력",
	"옵션 스타일",
	"버튼이미지 설정",
	"색상 설정",
	"필수여부",
	"품절표시 문구",
	"추가입력옵션",
	"추가입력옵션 명칭",
	"추가입력옵션 선택/필수여부",
	"입력글자수(자)",
	"이미지등록(상세)",
	"이미지등록(목록)",
	"이미지등록(작은목록)",
	"이미지등록(축소)",
	"이미지등록(추가)",
	"제조사",
	"공급사",
	"브랜드",
	"트렌드",
	"자체분류 코드",
	"제조일자",
	"출시일자",
	"유효기간 사용여부",
	"유효기간",
	"원산지",
	"상품부피(cm)",
	"상품결제안내",
	"상품배송안내",
	"교환/반품안내",
	"서비스문의/안내",
	"배송정보",
	"배송방법",
	"국내/해외배송",
	"배송지역",
	"배송비 선결제 설정",
	"배송기간",
	"배송비 구분",
	"배송비입력",
	"스토어픽업 설정",
	"상품 전체중량(kg)",
	"HS코드",
	"상품 구분(해외통관)",
	"상품소재",
	"영문 상품소재(해외통관)",
	"클리어런스 사유부호",
	"관련상품",
	"검색엔진 최적화(SEO) Title",
	"검색엔진 최적화(SEO) Author",
	"검색엔진 최적화(SEO) Description",
	"검색엔진 최적화(SEO) Keywords",
	"검색엔진 최적화(SEO) 상품 이미지 Alt 텍스트",
	"개별 결제수단설정",
	"상품 배송유형 코드",
	"사은품 정보",
	"추가항목",
	"모델 NO",
	"소비자가 대체문구",
	"메모",
}

// Template column names that round-trip to API product fields. Everything
// else is left empty on export and ignored on import.
const (
	colProductCode        = "상품코드"
	colCustomProductCode  = "자체 상품코드"
	colDisplay            = "진열상태"
	colSelling            = "판매상태"
	colProductName        = "상품명"
	colModelName          = "모델명"
	colSummaryDescription = "상품 요약설명"
	colTaxType            = "과세구분"
	colRetailPrice        = "소비자가"
	colSupplyPrice        = "공급가"
	colPrice              = "판매가"
	colProductTag         = "검색어설정"
	colBrandCode          = "브랜드"
	colManufacturerCode   = "제조사"
	colSupplierCode       = "공급사"
	colMadeInCode         = "원산지"
)

// ProductCodePrefix marks upstream-assigned product codes; rows carrying one
// are treated as updates on import.
const ProductCodePrefix = "P"

// flagToCSV converts the API "T"/"F" flags to the template's "Y"/"N".
func flagToCSV(flag string) string {
	switch flag {
	case models.FlagTrue:
		return "Y"
	case models.FlagFalse:
		return "N"
	}
	return ""
}

// flagFromCSV converts the template's "Y"/"N" to the API "T"/"F" flags.
func flagFromCSV(cell string) string {
	switch strings.ToUpper(strings.TrimSpace(cell)) {
	case "Y":
		return models.FlagTrue
	case "N":
		return models.FlagFalse
	}
	return ""
}

// taxTypeToCSV renders the API tax code with the template's rate suffix,
// e.g. "A" becomes "A|10".
func taxTypeToCSV(taxType string) string {
	if taxType == "" {
		return ""
	}
	if taxType == "A" {
		return "A|10"
	}
	return taxType
}

// taxTypeFromCSV keeps only the code before the rate suffix.
func taxTypeFromCSV(cell string) string {
	code, _, _ := strings.Cut(strings.TrimSpace(cell), "|")
	return code
}

// priceFromCSV normalises a template decimal price to the API integer string.
func priceFromCSV(cell string) (string, error) {
	return models.NormalizePrice(cell)
}

// templateRow renders one product into the template's full column order.
func templateRow(p *models.Product) []string {
	row := make([]string, len(TemplateColumns))
	for i, col := range TemplateColumns {
		switch col {
		case colProductCode:
			row[i] = p.ProductCode
		case colCustomProductCode:
			row[i] = p.CustomProductCode
		case colDisplay:
			row[i] = flagToCSV(p.Display)
		case colSelling:
			row[i] = flagToCSV(p.Selling)
		case colProductName:
			row[i] = p.ProductName
		case colModelName:
			row[i] = p.ModelName
		case colSummaryDescription:
			row[i] = p.SummaryDescription
		case colTaxType:
			row[i] = taxTypeToCSV(p.TaxType)
		case colRetailPrice:
			row[i] = p.RetailPrice
		case colSupplyPrice:
			row[i] = p.SupplyPrice
		case colPrice:
			row[i] = p.Price
		case colProductTag:
			row[i] = p.ProductTag
		case colBrandCode:
			row[i] = p.BrandCode
		case colManufacturerCode:
			row[i] = p.ManufacturerCode
		case colSupplierCode:
			row[i] = p.SupplierCode
		case colMadeInCode:
			row[i] = p.MadeInCode
		}
	}
	return row
}

// headerIndex maps column names to their position in the parsed header row.
type headerIndex map[string]int

func indexHeader(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	return idx
}

// cell returns the named column of a row, or empty when the column is absent
// or the row is short.
func (h headerIndex) cell(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
