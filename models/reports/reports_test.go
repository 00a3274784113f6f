package reports_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/models/reports"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

func setupStore(t *testing.T) context.Context {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fieldsales.db")
	require.NoError(t, config.ConnectDatabase(path))
	t.Cleanup(func() { _ = config.CloseDatabase() })

	ctx := context.Background()
	_, err := models.MigrateTable(ctx, config.Settings{DatabasePath: path})
	require.NoError(t, err)

	_, err = models.CreateRepresentative(ctx, &models.NewRepresentative{Code: "R1", Name: "Miren"})
	require.NoError(t, err)
	_, err = models.CreateMember(ctx, &models.NewMember{NationalID: "12345678Z", Name: "Ane", RepresentativeCode: "R1"})
	require.NoError(t, err)
	for _, it := range []models.CatalogItem{
		{ArticleCode: "A1", Name: "Olive oil", UnitPrice: decimal.RequireFromString("4.50"), Stock: 20},
		{ArticleCode: "A2", Name: "Honey", UnitPrice: decimal.RequireFromString("7.25"), Stock: 5, ImageName: "a2.png"},
	} {
		item := it
		require.NoError(t, config.GetDB().Create(&item).Error)
	}
	return ctx
}

func TestOrdersByCounterpartReport(t *testing.T) {
	ctx := utils.SetRepresentativeCodeInContext(setupStore(t), "R1")
	for i := 0; i < 2; i++ {
		_, err := models.CreateOrder(ctx, &models.NewOrder{
			CounterpartCode: "12345678Z",
			Lines: []models.NewOrderLine{
				{ArticleCode: "A1", Quantity: 2},
				{ArticleCode: "A2", Quantity: 1},
			},
		})
		require.NoError(t, err)
	}

	from, to := utils.GetThisMonthRange()
	records, err := reports.GetOrdersByCounterpartReport(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "12345678Z", records[0].CounterpartCode)
	require.NotNil(t, records[0].CounterpartName)
	assert.Equal(t, "Ane", *records[0].CounterpartName)
	assert.Equal(t, 2, records[0].OrderCount)
	assert.Equal(t, 6, records[0].UnitCount)
	assert.Equal(t, "32.50", records[0].TotalAmount.StringFixed(2))

	other, err := reports.GetOrdersByCounterpartReport(utils.SetRepresentativeCodeInContext(ctx, "R2"), from, to)
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = reports.GetOrdersByCounterpartReport(context.Background(), from, to)
	require.ErrorIs(t, err, utils.ErrSession)
}

func TestCatalogWorkbook(t *testing.T) {
	ctx := setupStore(t)
	path := filepath.Join(t.TempDir(), "export", "catalog.xlsx")
	require.NoError(t, reports.WriteCatalogWorkbook(ctx, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Catalog")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Article", "Name", "Unit Price", "Stock", "Image"}, rows[0])
	assert.Equal(t, "A1", rows[1][0])
	assert.Equal(t, "4.50", rows[1][2])
	assert.Equal(t, "a2.png", rows[2][4])
}
