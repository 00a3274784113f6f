package reconcile_test

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/reconcile"
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

func newPass(strict bool) *reconcile.Pass {
	return reconcile.NewPass(config.GetDB(), reconcile.Options{Strict: strict, Logger: logrus.New()})
}

func repsDoc(codes ...string) *snapshot.Document {
	doc := &snapshot.Document{Kind: snapshot.KindRepresentatives}
	for i, c := range codes {
		doc.Representatives = append(doc.Representatives, snapshot.RepresentativeRecord{Ordinal: i + 1, Code: c, Name: "Rep " + c})
	}
	return doc
}

func membersDoc(ids ...string) *snapshot.Document {
	doc := &snapshot.Document{Kind: snapshot.KindMembers}
	for i, id := range ids {
		doc.Members = append(doc.Members, snapshot.MemberRecord{Ordinal: i + 1, NationalID: id, Name: "Member " + id})
	}
	return doc
}

func storedCodes(t *testing.T, table string, column string, where string) []string {
	t.Helper()
	var codes []string
	q := config.GetDB().Table(table)
	if where != "" {
		q = q.Where(where)
	}
	require.NoError(t, q.Order(column).Pluck(column, &codes).Error)
	return codes
}

func apply(t *testing.T, ctx context.Context, p *reconcile.Pass, doc *snapshot.Document) reconcile.Result {
	t.Helper()
	res, err := p.Apply(ctx, doc)
	require.NoError(t, err)
	return res
}

func TestReconcileKeySetMatchesSnapshot(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)

	res := apply(t, ctx, p, repsDoc("R1", "R2", "R3"))
	assert.Equal(t, 3, res.Inserted)
	before, err := models.GetRepresentativeByCode(ctx, "R2")
	require.NoError(t, err)

	res = apply(t, ctx, p, repsDoc("R2", "R4"))
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 2, res.Deleted)
	assert.Equal(t, []string{"R2", "R4"}, storedCodes(t, "representatives", "code", ""))

	after, err := models.GetRepresentativeByCode(ctx, "R2")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1"))

	doc := membersDoc("11111111A", "22222222B")
	first := apply(t, ctx, p, doc)
	second := apply(t, ctx, p, doc)
	assert.Equal(t, 2, first.Inserted)
	assert.Zero(t, second.Inserted)
	assert.Zero(t, second.Deleted)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, []string{"11111111A", "22222222B"}, storedCodes(t, "counterparts", "code", ""))
}

func TestBandsRetainEachOther(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1"))
	apply(t, ctx, p, membersDoc("11111111A", "22222222B", "33333333C", "44444444D", "55555555E"))
	apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P1", Name: "Shop", OwnerRef: 1},
	}})

	res := apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners})
	assert.Equal(t, 1, res.Deleted)
	assert.Len(t, storedCodes(t, "counterparts", "code", "id >= 1000"), 5)
	assert.Empty(t, storedCodes(t, "counterparts", "code", "id < 1000"))

	apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P2", Name: "Bar", OwnerRef: 1},
	}})
	res = apply(t, ctx, p, membersDoc("11111111A"))
	assert.Equal(t, 4, res.Deleted)
	assert.Equal(t, []string{"P2"}, storedCodes(t, "counterparts", "code", "id < 1000"))
	assert.Equal(t, []string{"11111111A"}, storedCodes(t, "counterparts", "code", "id >= 1000"))
}

func TestNewCounterpartsGetBandIDsAndCreationDate(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1"))
	apply(t, ctx, p, membersDoc("11111111A"))
	apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P1", Name: "Shop", OwnerCode: "R1"},
	}})

	partner, err := models.GetCounterpartByCode(ctx, "P1")
	require.NoError(t, err)
	member, err := models.GetCounterpartByCode(ctx, "11111111A")
	require.NoError(t, err)
	assert.Equal(t, 1, partner.ID)
	assert.Equal(t, models.MemberBandStart, member.ID)
	require.NotNil(t, partner.CreatedDate)
	assert.Equal(t, utils.Today(), *partner.CreatedDate)
}

func TestCodeOfOtherBandIsSkipped(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1"))
	apply(t, ctx, p, membersDoc("11111111A"))

	res := apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "11111111A", Name: "Clash", OwnerRef: 1},
	}})
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Inserted)
	member, err := models.GetCounterpartByCode(ctx, "11111111A")
	require.NoError(t, err)
	assert.Equal(t, models.BandMember, member.Band())
}

func TestCatalogRefreshKeepsImage(t *testing.T) {
	ctx := setupStore(t)
	item := models.CatalogItem{ArticleCode: "X1", Name: "Widget", UnitPrice: decimal.RequireFromString("10.00"), Stock: 3, ImageName: "x1.png"}
	require.NoError(t, config.GetDB().Create(&item).Error)

	res := apply(t, ctx, newPass(false), &snapshot.Document{Kind: snapshot.KindCatalog, Catalog: []snapshot.CatalogRecord{
		{Ordinal: 1, ArticleCode: "X1", Name: "Widget", UnitPrice: decimal.RequireFromString("12.00"), Stock: 5},
		{Ordinal: 2, ArticleCode: "X2", Name: "Gadget", UnitPrice: decimal.RequireFromString("1.50"), Image: "x2.png"},
	}})
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Inserted)

	got, err := models.GetCatalogItem(ctx, "X1")
	require.NoError(t, err)
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("12.00")))
	assert.Equal(t, "x1.png", got.ImageName)
	assert.Equal(t, 5, got.Stock)
}

func TestOrdinalReferences(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R9", "R5"))
	require.Equal(t, 2, p.Index().Len())

	res := apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P1", Name: "Second rep", OwnerRef: 2},
		{Ordinal: 2, Code: "P2", Name: "Out of range", OwnerRef: 7},
		{Ordinal: 3, Code: "P3", Name: "Explicit code", OwnerCode: "R5", OwnerRef: 1},
	}})
	assert.Equal(t, 1, res.Degraded)

	r5, err := models.GetRepresentativeByCode(ctx, "R5")
	require.NoError(t, err)
	p1, err := models.GetCounterpartByCode(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "R5", p1.RepresentativeCode)
	require.NotNil(t, p1.RepresentativeID)
	assert.Equal(t, r5.ID, *p1.RepresentativeID)

	p2, err := models.GetCounterpartByCode(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, "R9", p2.RepresentativeCode)

	p3, err := models.GetCounterpartByCode(ctx, "P3")
	require.NoError(t, err)
	assert.Equal(t, "R5", p3.RepresentativeCode)
}

func TestStrictOrdinalReferencesFailTheKind(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(true)
	apply(t, ctx, p, repsDoc("R1"))

	_, err := p.Apply(ctx, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P1", Name: "Fine", OwnerRef: 1},
		{Ordinal: 2, Code: "P2", Name: "Broken", OwnerRef: 3},
	}})
	require.ErrorIs(t, err, utils.ErrIntegrity)
	assert.Empty(t, storedCodes(t, "counterparts", "code", ""))
}

func TestNoRepresentativeIsIntegrityError(t *testing.T) {
	ctx := setupStore(t)
	_, err := newPass(false).Apply(ctx, membersDoc("11111111A"))
	require.ErrorIs(t, err, utils.ErrIntegrity)
}

func TestOrdinalKeepsPositionOfKeylessRecord(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	res := apply(t, ctx, p, repsDoc("A", "", "C"))
	assert.Equal(t, 1, res.Skipped)
	require.Equal(t, 3, p.Index().Len())
	assert.Equal(t, 2, p.Index().Stored())

	res = apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P1", Name: "Third rep", OwnerRef: 3},
		{Ordinal: 2, Code: "P2", Name: "Keyless rep", OwnerRef: 2},
	}})
	assert.Equal(t, 1, res.Degraded)

	p1, err := models.GetCounterpartByCode(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "C", p1.RepresentativeCode)
	p2, err := models.GetCounterpartByCode(ctx, "P2")
	require.NoError(t, err)
	assert.Equal(t, "A", p2.RepresentativeCode)

	strict := newPass(true)
	apply(t, ctx, strict, repsDoc("A", "", "C"))
	_, err = strict.Apply(ctx, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P2", Name: "Keyless rep", OwnerRef: 2},
	}})
	require.ErrorIs(t, err, utils.ErrIntegrity)
}

func TestIndexFromStoreUsesIDOrder(t *testing.T) {
	ctx := setupStore(t)
	apply(t, ctx, newPass(false), repsDoc("B", "A"))

	ix, err := reconcile.IndexFromStore(ctx, config.GetDB(), false, logrus.New())
	require.NoError(t, err)
	first, degraded, err := ix.Resolve(1)
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, "B", first.Code)

	fallback, degraded, err := ix.Resolve(0)
	require.NoError(t, err)
	assert.True(t, degraded)
	assert.Equal(t, "B", fallback.Code)
}

func TestCredentialsAreHashed(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1", "R2"))

	hash, err := utils.HashPassword("kept")
	require.NoError(t, err)
	res := apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindCredentials, Credentials: []snapshot.CredentialRecord{
		{Ordinal: 1, Login: "ane", Password: "secret", RepresentativeRef: 2},
		{Ordinal: 2, Login: "jon", Password: string(hash), RepresentativeCode: "R1"},
		{Ordinal: 3, Login: "nopass", RepresentativeRef: 1},
	}})
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 1, res.Skipped)

	rep, err := models.Authenticate(ctx, "ane", "secret")
	require.NoError(t, err)
	assert.Equal(t, "R2", rep.Code)
	rep, err = models.Authenticate(ctx, "jon", "kept")
	require.NoError(t, err)
	assert.Equal(t, "R1", rep.Code)

	var stored string
	require.NoError(t, config.GetDB().Table("credentials").Where("login = ?", "ane").Pluck("password_hash", &stored).Error)
	assert.NotEqual(t, "secret", stored)
	assert.True(t, utils.IsPasswordHash(stored))

	// a later feed without a password keeps the stored hash
	apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindCredentials, Credentials: []snapshot.CredentialRecord{
		{Ordinal: 1, Login: "ane", RepresentativeRef: 2},
	}})
	_, err = models.Authenticate(ctx, "ane", "secret")
	require.NoError(t, err)
	_, err = models.Authenticate(ctx, "jon", "kept")
	require.ErrorIs(t, err, utils.ErrSession)
}

func TestPurchaseHistoryIsAppendOnly(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1"))

	doc := membersDoc("11111111A")
	doc.Members[0].OwnerCode = "R1"
	doc.Members[0].Purchases = []snapshot.PurchaseRecord{
		{ShipmentID: "S1", ArticleCode: "A1", Quantity: 1, UnitPrice: decimal.RequireFromString("2.00")},
		{ShipmentID: "S1", ArticleCode: "A2", Quantity: 2, UnitPrice: decimal.RequireFromString("3.00")},
	}
	apply(t, ctx, p, doc)

	doc.Members[0].Purchases = append(doc.Members[0].Purchases,
		snapshot.PurchaseRecord{ShipmentID: "S2", ArticleCode: "A1", Quantity: 4})
	apply(t, ctx, p, doc)

	lines, err := models.ListPurchaseHistory(utils.SetRepresentativeCodeInContext(ctx, "R1"), "11111111A")
	require.NoError(t, err)
	assert.Len(t, lines, 3)

	other, err := models.ListPurchaseHistory(utils.SetRepresentativeCodeInContext(ctx, "R2"), "11111111A")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestAgendaAppend(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1", "R2"))
	apply(t, ctx, p, membersDoc("11111111A"))

	doc := &snapshot.Document{Kind: snapshot.KindAgenda, Visits: []snapshot.VisitRecord{
		{Ordinal: 1, Date: "2026-10-20", Time: "10:00", OwnerCode: "R1", CounterpartCode: "11111111A", Status: "zain"},
		{Ordinal: 2, Date: "2026-10-21", Time: "09:30", OwnerCode: "R2", CounterpartCode: "11111111A", Status: "done"},
		{Ordinal: 3, Date: "2026-10-21", OwnerCode: "R1", CounterpartCode: "99999999Z"},
		{Ordinal: 4, Date: "2026-10-22", OwnerCode: "NOPE", CounterpartCode: "11111111A"},
	}}
	res := apply(t, ctx, p, doc)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.Skipped)

	doc.Visits[0].Status = "egina"
	doc.Visits[0].Description = "signed"
	res = apply(t, ctx, p, doc)
	assert.Zero(t, res.Inserted)
	assert.Equal(t, 2, res.Updated)

	visits, err := models.ListVisits(utils.SetRepresentativeCodeInContext(ctx, "R1"), "", "")
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, models.VisitStatusDone, visits[0].Status)
	assert.Equal(t, "signed", visits[0].Description)
}

func TestExportThenImportRoundTrip(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1", "R2"))
	apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindPartners, Partners: []snapshot.PartnerRecord{
		{Ordinal: 1, Code: "P1", Name: "Shop", Address: "Main st 1", Province: "Gipuzkoa", OwnerCode: "R2"},
		{Ordinal: 2, Code: "P2", Name: "Bar", OwnerCode: "R1"},
	}})

	var reps, partners bytes.Buffer
	for kind, buf := range map[snapshot.Kind]*bytes.Buffer{snapshot.KindRepresentatives: &reps, snapshot.KindPartners: &partners} {
		tree, err := snapshot.Build(ctx, kind, models.ExportModeFull)
		require.NoError(t, err)
		require.NoError(t, snapshot.WriteXML(buf, tree))
	}
	want, err := models.ListCounterparts(ctx, models.BandPartner)
	require.NoError(t, err)

	// a second, empty store
	ctx = setupStore(t)
	fresh := newPass(false)
	for _, in := range []struct {
		kind snapshot.Kind
		buf  *bytes.Buffer
	}{{snapshot.KindRepresentatives, &reps}, {snapshot.KindPartners, &partners}} {
		doc, err := snapshot.Parse(in.buf, in.kind)
		require.NoError(t, err)
		apply(t, ctx, fresh, doc)
	}

	got, err := models.ListCounterparts(ctx, models.BandPartner)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	sort.Slice(got, func(i, j int) bool { return got[i].Code < got[j].Code })
	sort.Slice(want, func(i, j int) bool { return want[i].Code < want[j].Code })
	for i := range want {
		assert.Equal(t, want[i].Code, got[i].Code)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.Equal(t, want[i].Address, got[i].Address)
		assert.Equal(t, want[i].Province, got[i].Province)
		assert.Equal(t, want[i].RepresentativeCode, got[i].RepresentativeCode)
	}
}

func TestCatalogAndPurchasesRoundTripKeepPrices(t *testing.T) {
	ctx := setupStore(t)
	p := newPass(false)
	apply(t, ctx, p, repsDoc("R1"))
	apply(t, ctx, p, &snapshot.Document{Kind: snapshot.KindCatalog, Catalog: []snapshot.CatalogRecord{
		{Ordinal: 1, ArticleCode: "A1", Name: "Saffron", UnitPrice: decimal.RequireFromString("10.125"), Stock: 3},
		{Ordinal: 2, ArticleCode: "A2", Name: "Salt", UnitPrice: decimal.RequireFromString("0.0475"), Stock: 90},
	}})
	members := membersDoc("11111111A")
	members.Members[0].OwnerCode = "R1"
	members.Members[0].Purchases = []snapshot.PurchaseRecord{
		{ShipmentID: "S1", ArticleCode: "A1", Quantity: 1, UnitPrice: decimal.RequireFromString("10.125")},
		{ShipmentID: "S1", ArticleCode: "A2", Quantity: 3, UnitPrice: decimal.RequireFromString("1.3333")},
	}
	apply(t, ctx, p, members)

	session := utils.SetRepresentativeCodeInContext(ctx, "R1")
	buffers := map[snapshot.Kind]*bytes.Buffer{}
	for _, kind := range []snapshot.Kind{snapshot.KindRepresentatives, snapshot.KindMembers, snapshot.KindCatalog} {
		tree, err := snapshot.Build(session, kind, models.ExportModeFull)
		require.NoError(t, err)
		buffers[kind] = &bytes.Buffer{}
		require.NoError(t, snapshot.WriteXML(buffers[kind], tree))
	}
	wantItems, err := models.ListCatalogItems(ctx)
	require.NoError(t, err)
	wantLines, err := models.ListPurchaseHistory(session, "11111111A")
	require.NoError(t, err)

	// a second, empty store
	ctx = setupStore(t)
	fresh := newPass(false)
	for _, kind := range []snapshot.Kind{snapshot.KindRepresentatives, snapshot.KindMembers, snapshot.KindCatalog} {
		doc, err := snapshot.Parse(buffers[kind], kind)
		require.NoError(t, err)
		apply(t, ctx, fresh, doc)
	}

	gotItems, err := models.ListCatalogItems(ctx)
	require.NoError(t, err)
	require.Len(t, gotItems, len(wantItems))
	prices := map[string]string{}
	for _, it := range gotItems {
		prices[it.ArticleCode] = it.UnitPrice.String()
	}
	for _, it := range wantItems {
		assert.Equal(t, it.UnitPrice.String(), prices[it.ArticleCode], it.ArticleCode)
	}
	assert.Equal(t, "10.125", prices["A1"])

	gotLines, err := models.ListPurchaseHistory(utils.SetRepresentativeCodeInContext(ctx, "R1"), "11111111A")
	require.NoError(t, err)
	require.Len(t, gotLines, len(wantLines))
	linePrices := map[string]string{}
	for _, l := range gotLines {
		linePrices[l.ArticleCode] = l.UnitPrice.String()
	}
	for _, l := range wantLines {
		assert.Equal(t, l.UnitPrice.String(), linePrices[l.ArticleCode], l.ArticleCode)
	}
	assert.Equal(t, "1.3333", linePrices["A2"])
}
