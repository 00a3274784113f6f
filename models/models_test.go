package models_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/models"
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

func as(ctx context.Context, code string) context.Context {
	return utils.SetRepresentativeCodeInContext(ctx, code)
}

func seedRepresentative(t *testing.T, ctx context.Context, code string) *models.Representative {
	t.Helper()
	rep, err := models.CreateRepresentative(ctx, &models.NewRepresentative{Code: code, Name: "Rep " + code})
	require.NoError(t, err)
	return rep
}

func seedMember(t *testing.T, ctx context.Context, nationalID string) *models.Counterpart {
	t.Helper()
	m, err := models.CreateMember(ctx, &models.NewMember{NationalID: nationalID, Name: "Member"})
	require.NoError(t, err)
	return m
}

func seedItem(t *testing.T, code string, price string, stock int) {
	t.Helper()
	item := models.CatalogItem{ArticleCode: code, Name: "Item " + code, UnitPrice: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, config.GetDB().Create(&item).Error)
}

func countRows(t *testing.T, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, config.GetDB().Raw("SELECT COUNT(*) FROM "+table).Scan(&n).Error)
	return n
}

func TestBandAllocation(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "R1")

	p1, err := models.CreatePartner(ctx, &models.NewPartner{Code: "P1", Name: "Partner one", RepresentativeCode: "R1"})
	require.NoError(t, err)
	p2, err := models.CreatePartner(ctx, &models.NewPartner{Code: "P2", Name: "Partner two"})
	require.NoError(t, err)
	m1 := seedMember(t, ctx, "12345678-z")

	assert.Equal(t, 1, p1.ID)
	assert.Equal(t, 2, p2.ID)
	assert.Equal(t, models.MemberBandStart, m1.ID)
	assert.Equal(t, "12345678Z", m1.Code)
	assert.Equal(t, models.BandMember, m1.Band())
	assert.Equal(t, models.BandPartner, p1.Band())
	require.NotNil(t, p1.CreatedDate)
	assert.Equal(t, utils.Today(), *p1.CreatedDate)
	require.NotNil(t, p1.RepresentativeID)

	members, err := models.ListCounterparts(ctx, models.BandMember)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, m1.Code, members[0].Code)

	_, err = models.CreatePartner(ctx, &models.NewPartner{Code: "P3", Name: "Orphan", RepresentativeCode: "NOPE"})
	require.ErrorIs(t, err, utils.ErrIntegrity)
}

func TestCreateMemberValidatesInput(t *testing.T) {
	ctx := setupStore(t)
	_, err := models.CreateMember(ctx, &models.NewMember{NationalID: "bad", Name: "X"})
	require.ErrorIs(t, err, utils.ErrValidation)
}

func TestOrderWithUnknownCounterpartPersistsNothing(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "R1")
	seedItem(t, "A1", "5.00", 10)

	_, err := models.CreateOrder(as(ctx, "R1"), &models.NewOrder{
		CounterpartCode: "99999999X",
		Lines:           []models.NewOrderLine{{ArticleCode: "A1", Quantity: 2}},
	})
	require.ErrorIs(t, err, utils.ErrIntegrity)

	assert.Zero(t, countRows(t, "order_headers"))
	assert.Zero(t, countRows(t, "order_lines"))
	item, err := models.GetCatalogItem(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 10, item.Stock)
}

func TestOrderWithUnknownArticleOrOwner(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "R1")
	member := seedMember(t, ctx, "12345678Z")
	seedItem(t, "A1", "5.00", 10)

	_, err := models.CreateOrder(as(ctx, "R1"), &models.NewOrder{
		CounterpartCode: member.Code,
		Lines:           []models.NewOrderLine{{ArticleCode: "A1", Quantity: 1}, {ArticleCode: "GHOST", Quantity: 1}},
	})
	require.ErrorIs(t, err, utils.ErrIntegrity)

	_, err = models.CreateOrder(as(ctx, "NOBODY"), &models.NewOrder{
		CounterpartCode: member.Code,
		Lines:           []models.NewOrderLine{{ArticleCode: "A1", Quantity: 1}},
	})
	require.ErrorIs(t, err, utils.ErrIntegrity)

	_, err = models.CreateOrder(ctx, &models.NewOrder{CounterpartCode: member.Code})
	require.ErrorIs(t, err, utils.ErrNoActiveSession)

	assert.Zero(t, countRows(t, "order_headers"))
}

func TestOrderCopiesPriceAndDecrementsStock(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "R1")
	member := seedMember(t, ctx, "12345678Z")
	seedItem(t, "A1", "5.50", 10)
	repCtx := as(ctx, "R1")

	order, err := models.CreateOrder(repCtx, &models.NewOrder{
		CounterpartCode: member.Code,
		Delegation:      "North",
		Lines:           []models.NewOrderLine{{ArticleCode: "A1", Quantity: 3}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, order.Number)
	assert.Equal(t, utils.Today(), order.OrderDate)
	assert.True(t, decimal.RequireFromString("16.50").Equal(order.Total()))

	require.NoError(t, config.GetDB().Model(&models.CatalogItem{}).Where("article_code = ?", "A1").
		UpdateColumn("unit_price", "9.99").Error)

	stored, err := models.GetOrder(repCtx, order.Number)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.True(t, decimal.RequireFromString("5.50").Equal(stored.Lines[0].UnitPrice))
	assert.Equal(t, "Item A1", stored.Lines[0].ArticleName)

	item, err := models.GetCatalogItem(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, 7, item.Stock)

	today, err := models.ListOrdersCreatedOn(repCtx, utils.Today())
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Len(t, today[0].Lines, 1)
}

func TestOrdersAreScopedToOwner(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "A")
	seedRepresentative(t, ctx, "B")
	member := seedMember(t, ctx, "12345678Z")
	seedItem(t, "A1", "1.00", 10)

	order, err := models.CreateOrder(as(ctx, "B"), &models.NewOrder{
		CounterpartCode: member.Code,
		Lines:           []models.NewOrderLine{{ArticleCode: "A1", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = models.GetOrder(as(ctx, "A"), order.Number)
	require.ErrorIs(t, err, utils.ErrNotFound)

	n, err := models.DeleteOrder(as(ctx, "A"), order.Number)
	require.ErrorIs(t, err, utils.ErrNotFound)
	assert.Zero(t, n)
	assert.EqualValues(t, 1, countRows(t, "order_headers"))

	n, err = models.DeleteOrder(as(ctx, "B"), order.Number)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Zero(t, countRows(t, "order_lines"))
}

func TestVisitAccessScoping(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "A")
	seedRepresentative(t, ctx, "B")
	member := seedMember(t, ctx, "12345678Z")

	visitA, err := models.CreateVisit(as(ctx, "A"), &models.NewVisit{VisitDate: "2026/10/01", CounterpartCode: member.Code, Description: "A's visit"})
	require.NoError(t, err)
	visitB, err := models.CreateVisit(as(ctx, "B"), &models.NewVisit{VisitDate: "2026-10-02", CounterpartCode: member.Code, Description: "B's visit"})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01", visitA.VisitDate)
	assert.Equal(t, models.VisitStatusPending, visitA.Status)

	listA, err := models.ListVisits(as(ctx, "A"), "", "")
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Equal(t, visitA.ID, listA[0].ID)

	_, err = models.GetVisit(as(ctx, "A"), visitB.ID)
	require.ErrorIs(t, err, utils.ErrNotFound)

	_, err = models.UpdateVisit(as(ctx, "A"), visitB.ID, &models.NewVisit{VisitDate: "2026-10-03", CounterpartCode: member.Code})
	require.ErrorIs(t, err, utils.ErrNotFound)

	n, err := models.DeleteVisit(as(ctx, "A"), visitB.ID)
	require.ErrorIs(t, err, utils.ErrNotFound)
	assert.Zero(t, n)

	still, err := models.GetVisit(as(ctx, "B"), visitB.ID)
	require.NoError(t, err)
	assert.Equal(t, "B's visit", still.Description)

	done, err := models.SetVisitStatus(as(ctx, "B"), visitB.ID, models.VisitStatusDone)
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusDone, done.Status)
}

func TestNoSessionSeesNoOwnedRows(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "A")
	member := seedMember(t, ctx, "12345678Z")
	_, err := models.CreateVisit(as(ctx, "A"), &models.NewVisit{VisitDate: "2026-10-01", CounterpartCode: member.Code})
	require.NoError(t, err)

	_, err = models.ListVisits(ctx, "", "")
	require.ErrorIs(t, err, utils.ErrNoActiveSession)

	// the guard also covers direct queries
	var visits []models.Visit
	require.NoError(t, config.GetDB().WithContext(ctx).Find(&visits).Error)
	assert.Empty(t, visits)

	unscoped := utils.SetSkipOwnerScopeInContext(ctx, true)
	require.NoError(t, config.GetDB().WithContext(unscoped).Find(&visits).Error)
	assert.Len(t, visits, 1)
}

func TestVisitRequiresMember(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "A")
	_, err := models.CreatePartner(ctx, &models.NewPartner{Code: "P1", Name: "Partner"})
	require.NoError(t, err)

	_, err = models.CreateVisit(as(ctx, "A"), &models.NewVisit{VisitDate: "2026-10-01", CounterpartCode: "P1"})
	require.ErrorIs(t, err, utils.ErrIntegrity)
}

func TestAuthenticate(t *testing.T) {
	ctx := setupStore(t)
	seedRepresentative(t, ctx, "R1")

	_, err := models.SetCredential(ctx, "ana", "s3cret", "R1")
	require.NoError(t, err)

	rep, err := models.Authenticate(ctx, "ana", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "R1", rep.Code)

	_, err = models.Authenticate(ctx, "ana", "wrong")
	require.ErrorIs(t, err, utils.ErrSession)
	_, err = models.Authenticate(ctx, "nobody", "s3cret")
	require.ErrorIs(t, err, utils.ErrSession)
}

func TestPurchaseFulfilledIsScoped(t *testing.T) {
	ctx := setupStore(t)
	line := models.PurchaseHistory{ShipmentID: "S1", CounterpartCode: "12345678Z", RepresentativeCode: "A", ArticleCode: "A1", Quantity: 2}
	require.NoError(t, config.GetDB().Create(&line).Error)

	_, err := models.SetPurchaseFulfilled(as(ctx, "B"), line.ID, true)
	require.ErrorIs(t, err, utils.ErrNotFound)

	updated, err := models.SetPurchaseFulfilled(as(ctx, "A"), line.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Fulfilled)

	lines, err := models.ListPurchaseHistory(as(ctx, "B"), "12345678Z")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestParseVisitStatus(t *testing.T) {
	s, err := models.ParseVisitStatus("Egina")
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusDone, s)

	s, err = models.ParseVisitStatus("")
	require.NoError(t, err)
	assert.Equal(t, models.VisitStatusPending, s)

	_, err = models.ParseVisitStatus("maybe")
	require.Error(t, err)
}
