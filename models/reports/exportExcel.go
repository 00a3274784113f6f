package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type ExcelExporter interface {
	GetCellValues() []interface{}
}

type catalogRow struct {
	item *models.CatalogItem
}

func (r catalogRow) GetCellValues() []interface{} {
	return []interface{}{
		r.item.ArticleCode,
		r.item.Name,
		r.item.UnitPrice.StringFixed(2),
		r.item.Stock,
		r.item.ImageName,
	}
}

// WriteCatalogWorkbook writes the stock workbook sent next to a full catalog export.
func WriteCatalogWorkbook(ctx context.Context, filename string) error {
	items, err := models.ListCatalogItems(ctx)
	if err != nil {
		return err
	}
	rows := make([]ExcelExporter, 0, len(items))
	for _, it := range items {
		rows = append(rows, catalogRow{item: it})
	}
	return exportExcel(rows, filename, "Catalog", "Article", "Name", "Unit Price", "Stock", "Image")
}

// WriteOrdersWorkbook writes this month's orders of the active representative, one row per
// counterpart.
func WriteOrdersWorkbook(ctx context.Context, filename string) error {
	from, to := utils.GetThisMonthRange()
	records, err := GetOrdersByCounterpartReport(ctx, from, to)
	if err != nil {
		return err
	}
	rows := make([]ExcelExporter, 0, len(records))
	for _, r := range records {
		rows = append(rows, r)
	}
	return exportExcel(rows, filename, "Orders", "Customer", "Name", "Orders", "Units", "Total")
}

func exportExcel(data []ExcelExporter, filename string, sheetName string, headings ...string) error {

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	// Add headers
	col := 'A'
	for _, h := range headings {
		if err := f.SetCellValue(sheetName, string(col)+"1", h); err != nil {
			return err
		}
		col++
	}

	// Add data
	rowNo := 2
	for _, d := range data {
		col := 'A'
		for _, value := range d.GetCellValues() {
			if err := f.SetCellValue(sheetName, string(col)+fmt.Sprint(rowNo), value); err != nil {
				return err
			}
			col++
		}
		rowNo++
	}

	if err := os.MkdirAll(filepath.Dir(filename), 0o750); err != nil {
		return err
	}
	if err := f.SaveAs(filename); err != nil {
		return utils.StorageError("save workbook", err)
	}
	return nil
}
