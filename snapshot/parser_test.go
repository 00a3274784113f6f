package snapshot_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmdatafocus/fieldsales_backend/snapshot"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

const membersXML = `<?xml version="1.0" encoding="UTF-8"?>
<members>
  <generated_by><tool>backoffice</tool></generated_by>
  <member>
    <national_id>12345678-z</national_id>
    <name>Ane</name>
    <surname>Etxeberria</surname>
    <loyalty><tier>gold</tier><points>120</points></loyalty>
    <birth_date>1990/04/03</birth_date>
    <owner_code>R1</owner_code>
    <purchases>
      <purchase>
        <shipment_id>S-1</shipment_id>
        <article_code>A1</article_code>
        <quantity>3</quantity>
        <unit_price>4,50</unit_price>
        <fulfilled>true</fulfilled>
        <carrier><name>ignored</name></carrier>
      </purchase>
      <note>skip me</note>
    </purchases>
  </member>
  <member>
    <national_id>87654321X</national_id>
    <name>Jon</name>
  </member>
</members>`

func TestParseMembers(t *testing.T) {
	doc, err := snapshot.Parse(strings.NewReader(membersXML), snapshot.KindMembers)
	require.NoError(t, err)
	require.Len(t, doc.Members, 2)
	assert.Equal(t, 2, doc.Len())

	first := doc.Members[0]
	assert.Equal(t, 1, first.Ordinal)
	assert.Equal(t, "12345678Z", first.NationalID)
	assert.Equal(t, "Etxeberria", first.Surname)
	assert.Equal(t, "1990-04-03", first.BirthDate)
	require.Len(t, first.Purchases, 1)
	p := first.Purchases[0]
	assert.Equal(t, "S-1", p.ShipmentID)
	assert.Equal(t, 3, p.Quantity)
	assert.Equal(t, "4.5", p.UnitPrice.String())
	assert.True(t, p.Fulfilled)

	assert.Equal(t, 2, doc.Members[1].Ordinal)
	assert.Empty(t, doc.Members[1].Purchases)
}

func TestParseLenientNumbers(t *testing.T) {
	const catalog = `<catalog>
  <item><article_code>A1</article_code><unit_price>abc</unit_price><stock>ten</stock></item>
  <item><article_code>A2</article_code><unit_price>12.75</unit_price><stock>4</stock><image>a2.png</image></item>
</catalog>`
	doc, err := snapshot.Parse(strings.NewReader(catalog), snapshot.KindCatalog)
	require.NoError(t, err)
	require.Len(t, doc.Catalog, 2)
	assert.True(t, doc.Catalog[0].UnitPrice.IsZero())
	assert.Zero(t, doc.Catalog[0].Stock)
	assert.Equal(t, "12.75", doc.Catalog[1].UnitPrice.String())
	assert.Equal(t, "a2.png", doc.Catalog[1].Image)
}

func TestParseReferences(t *testing.T) {
	const partners = `<partners>
  <partner><code>P1</code><name>Shop</name><owner_ref>2</owner_ref></partner>
  <partner><code>P2</code><name>Bar</name><owner_code>R9</owner_code><owner_ref>x</owner_ref></partner>
</partners>`
	doc, err := snapshot.Parse(strings.NewReader(partners), snapshot.KindPartners)
	require.NoError(t, err)
	require.Len(t, doc.Partners, 2)
	assert.Equal(t, 2, doc.Partners[0].OwnerRef)
	assert.Equal(t, "R9", doc.Partners[1].OwnerCode)
	assert.Zero(t, doc.Partners[1].OwnerRef)
}

func TestParseEmptyRootIsValid(t *testing.T) {
	doc, err := snapshot.Parse(strings.NewReader(`<agenda/>`), snapshot.KindAgenda)
	require.NoError(t, err)
	assert.Zero(t, doc.Len())
}

func TestParseFormatErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"only header":  `<?xml version="1.0"?>`,
		"wrong root":   `<partners><partner><code>P1</code></partner></partners>`,
		"unclosed":     `<catalog><item><article_code>A1</article_code>`,
		"syntax error": `<catalog><item><article_code>A1</name></item></catalog>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := snapshot.Parse(strings.NewReader(body), snapshot.KindCatalog)
			require.ErrorIs(t, err, utils.ErrFormat)
			assert.NotErrorIs(t, err, utils.ErrNotFound)
		})
	}
}

func TestParseFileMissingIsNotFound(t *testing.T) {
	_, err := snapshot.ParseFile(filepath.Join(t.TempDir(), "catalog.xml"), snapshot.KindCatalog)
	require.ErrorIs(t, err, utils.ErrNotFound)
	assert.NotErrorIs(t, err, utils.ErrFormat)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "members.xml")
	require.NoError(t, os.WriteFile(path, []byte(membersXML), 0o600))
	doc, err := snapshot.ParseFile(path, snapshot.KindMembers)
	require.NoError(t, err)
	assert.Len(t, doc.Members, 2)
}

func TestParseUnsupportedKind(t *testing.T) {
	_, err := snapshot.Parse(strings.NewReader(`<orders/>`), snapshot.KindOrders)
	require.ErrorIs(t, err, utils.ErrUnsupportedKind)

	_, err = snapshot.Parse(strings.NewReader(`<x/>`), snapshot.Kind("invoices"))
	require.ErrorIs(t, err, utils.ErrUnsupportedKind)
}

func TestKindFromFileName(t *testing.T) {
	cases := map[string]snapshot.Kind{
		"Catalog.XML":                 snapshot.KindCatalog,
		"/tmp/in/members_2026-10.xml": snapshot.KindMembers,
		"partners-delta.xml":          snapshot.KindPartners,
		"representatives.xml":         snapshot.KindRepresentatives,
		"agenda.xml":                  snapshot.KindAgenda,
	}
	for name, want := range cases {
		got, err := snapshot.KindFromFileName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	for _, name := range []string{"orders.xml", "catalogue.xml", "invoice.xml", ""} {
		_, err := snapshot.KindFromFileName(name)
		assert.ErrorIs(t, err, utils.ErrUnsupportedKind, name)
	}
}

func TestImportKindsOrder(t *testing.T) {
	kinds := snapshot.ImportKinds()
	require.Len(t, kinds, 6)
	assert.Equal(t, snapshot.KindRepresentatives, kinds[0])
	assert.Equal(t, snapshot.KindPartners, kinds[1])
	assert.Equal(t, snapshot.KindAgenda, kinds[5])
}
