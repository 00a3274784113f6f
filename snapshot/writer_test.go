package snapshot_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/snapshot"
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
	return ctx
}

func seedSalesData(t *testing.T, ctx context.Context) context.Context {
	t.Helper()
	_, err := models.CreateRepresentative(ctx, &models.NewRepresentative{Code: "R1", Name: "Miren", Surname: "Agirre", BirthDate: "1985-02-01"})
	require.NoError(t, err)
	_, err = models.CreateRepresentative(ctx, &models.NewRepresentative{Code: "R2", Name: "Unai"})
	require.NoError(t, err)
	_, err = models.CreatePartner(ctx, &models.NewPartner{Code: "P1", Name: "Shop & Co", RepresentativeCode: "R1"})
	require.NoError(t, err)
	_, err = models.CreateMember(ctx, &models.NewMember{NationalID: "12345678Z", Name: "Ane", RepresentativeCode: "R1"})
	require.NoError(t, err)

	item := models.CatalogItem{ArticleCode: "A1", Name: "Olive oil", UnitPrice: decimal.RequireFromString("4.5"), Stock: 20, ImageName: "a1.png"}
	require.NoError(t, config.GetDB().Create(&item).Error)
	history := models.PurchaseHistory{
		ShipmentID: "S-1", CounterpartCode: "12345678Z", RepresentativeCode: "R1",
		ArticleCode: "A1", ArticleName: "Olive oil", PurchaseDate: "2026-01-15",
		Quantity: 2, Shipped: 2, UnitPrice: decimal.RequireFromString("4.5"),
	}
	require.NoError(t, config.GetDB().Create(&history).Error)

	r1 := utils.SetRepresentativeCodeInContext(ctx, "R1")
	_, err = models.CreateOrder(r1, &models.NewOrder{
		CounterpartCode: "12345678Z",
		Lines:           []models.NewOrderLine{{ArticleCode: "A1", Quantity: 3}},
	})
	require.NoError(t, err)
	return r1
}

func TestMembersRoundTrip(t *testing.T) {
	ctx := seedSalesData(t, setupStore(t))

	tree, err := snapshot.Build(ctx, snapshot.KindMembers, models.ExportModeFull)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, snapshot.WriteXML(&buf, tree))
	assert.True(t, strings.HasPrefix(buf.String(), "<?xml"))

	doc, err := snapshot.Parse(&buf, snapshot.KindMembers)
	require.NoError(t, err)
	require.Len(t, doc.Members, 1)
	m := doc.Members[0]
	assert.Equal(t, "12345678Z", m.NationalID)
	assert.Equal(t, "Ane", m.Name)
	assert.Equal(t, "R1", m.OwnerCode)
	require.Len(t, m.Purchases, 1)
	assert.Equal(t, "2026-01-15", m.Purchases[0].Date)
	assert.True(t, m.Purchases[0].UnitPrice.Equal(decimal.RequireFromString("4.5")))
}

func TestPricesKeepFullPrecision(t *testing.T) {
	ctx := seedSalesData(t, setupStore(t))
	db := config.GetDB()
	require.NoError(t, db.Model(&models.CatalogItem{}).Where("article_code = ?", "A1").
		Update("unit_price", decimal.RequireFromString("10.125")).Error)
	require.NoError(t, db.Model(&models.PurchaseHistory{}).Where("shipment_id = ?", "S-1").
		Update("unit_price", decimal.RequireFromString("0.3333")).Error)

	tree, err := snapshot.Build(ctx, snapshot.KindCatalog, models.ExportModeFull)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, snapshot.WriteXML(&buf, tree))
	assert.Contains(t, buf.String(), "<unit_price>10.125</unit_price>")
	catalog, err := snapshot.Parse(&buf, snapshot.KindCatalog)
	require.NoError(t, err)
	require.Len(t, catalog.Catalog, 1)
	assert.Equal(t, "10.125", catalog.Catalog[0].UnitPrice.String())

	tree, err = snapshot.Build(ctx, snapshot.KindMembers, models.ExportModeFull)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, snapshot.WriteXML(&buf, tree))
	members, err := snapshot.Parse(&buf, snapshot.KindMembers)
	require.NoError(t, err)
	require.Len(t, members.Members, 1)
	require.Len(t, members.Members[0].Purchases, 1)
	assert.Equal(t, "0.3333", members.Members[0].Purchases[0].UnitPrice.String())
}

func TestRepresentativesRoundTripKeepsOrder(t *testing.T) {
	ctx := seedSalesData(t, setupStore(t))

	tree, err := snapshot.Build(ctx, snapshot.KindRepresentatives, models.ExportModeFull)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, snapshot.WriteXML(&buf, tree))
	assert.Contains(t, buf.String(), "<birth_date>1985/02/01</birth_date>")

	doc, err := snapshot.Parse(&buf, snapshot.KindRepresentatives)
	require.NoError(t, err)
	require.Len(t, doc.Representatives, 2)
	assert.Equal(t, "R1", doc.Representatives[0].Code)
	assert.Equal(t, "1985-02-01", doc.Representatives[0].BirthDate)
	assert.Equal(t, 2, doc.Representatives[1].Ordinal)
}

func TestTextMirrorMatchesDocument(t *testing.T) {
	ctx := seedSalesData(t, setupStore(t))

	tree, err := snapshot.Build(ctx, snapshot.KindPartners, models.ExportModeFull)
	require.NoError(t, err)

	var xmlBuf, txtBuf bytes.Buffer
	require.NoError(t, snapshot.WriteXML(&xmlBuf, tree))
	require.NoError(t, snapshot.WriteText(&txtBuf, tree))

	assert.Contains(t, xmlBuf.String(), "<name>Shop &amp; Co</name>")
	text := txtBuf.String()
	assert.True(t, strings.HasPrefix(text, "=== PARTNERS ===\n\n"))
	assert.Contains(t, text, "Code: P1\n")
	assert.Contains(t, text, "Name: Shop & Co\n")
	assert.Equal(t, len(tree.Records), strings.Count(text, "---\n"))
}

func TestOrdersDeltaExport(t *testing.T) {
	ctx := seedSalesData(t, setupStore(t))

	tree, err := snapshot.Build(ctx, snapshot.KindOrders, models.ExportModeDelta)
	require.NoError(t, err)
	require.Len(t, tree.Records, 1)

	var buf bytes.Buffer
	require.NoError(t, snapshot.WriteXML(&buf, tree))
	out := buf.String()
	assert.Contains(t, out, "<lines>")
	assert.Contains(t, out, "<total>13.50</total>")
	assert.Contains(t, out, "<date>"+utils.ExportDate(utils.Today())+"</date>")

	other, err := snapshot.Build(utils.SetRepresentativeCodeInContext(context.Background(), "R2"), snapshot.KindOrders, models.ExportModeDelta)
	require.NoError(t, err)
	assert.Empty(t, other.Records)
}

func TestOrdersExportRequiresSession(t *testing.T) {
	seedSalesData(t, setupStore(t))
	_, err := snapshot.Build(context.Background(), snapshot.KindOrders, models.ExportModePeriod)
	require.ErrorIs(t, err, utils.ErrSession)
}

func TestUnsupportedExportCombinations(t *testing.T) {
	ctx := context.Background()
	for _, c := range []struct {
		kind snapshot.Kind
		mode models.ExportMode
	}{
		{snapshot.KindRepresentatives, models.ExportModeDelta},
		{snapshot.KindCatalog, models.ExportModePeriod},
		{snapshot.KindOrders, models.ExportModeFull},
		{snapshot.KindCredentials, models.ExportModeFull},
	} {
		_, err := snapshot.Build(ctx, c.kind, c.mode)
		assert.ErrorIs(t, err, utils.ErrUnsupportedKind, "%s/%s", c.kind, c.mode)
	}
}

func TestWriteFiles(t *testing.T) {
	ctx := seedSalesData(t, setupStore(t))
	tree, err := snapshot.Build(ctx, snapshot.KindCatalog, models.ExportModeFull)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "export")
	paths, err := snapshot.WriteFiles(dir, tree)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "catalog.xml"), paths[0])
	assert.Equal(t, filepath.Join(dir, "catalog.txt"), paths[1])

	doc, err := snapshot.ParseFile(paths[0], snapshot.KindCatalog)
	require.NoError(t, err)
	require.Len(t, doc.Catalog, 1)
	assert.Equal(t, "a1.png", doc.Catalog[0].Image)
	assert.Equal(t, 17, doc.Catalog[0].Stock)

	text, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(text), "Unit price: 4.5\n")
}

func TestFileStem(t *testing.T) {
	assert.Equal(t, "members", snapshot.FileStem(snapshot.KindMembers, models.ExportModeFull, "2026-10-18"))
	assert.Equal(t, "orders_delta_20261018", snapshot.FileStem(snapshot.KindOrders, models.ExportModeDelta, "2026-10-18"))

	kind, err := snapshot.KindFromFileName(snapshot.FileStem(snapshot.KindPartners, models.ExportModeDelta, "2026-10-18") + ".xml")
	require.NoError(t, err)
	assert.Equal(t, snapshot.KindPartners, kind)
}
