package snapshot

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// element is one record's scalar children plus its nested lists.
type element struct {
	fields map[string]string
	lists  map[string][]map[string]string
}

func (e element) get(tag string) string { return e.fields[tag] }

// ParseFile reads the snapshot at path. A missing file is NOT_FOUND, never FORMAT.
func ParseFile(path string, kind Kind) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, utils.NotFoundError("parse "+string(kind), "snapshot %s not found", path)
		}
		return nil, utils.StorageError("parse "+string(kind), err)
	}
	defer f.Close()
	return Parse(f, kind)
}

// Parse reads one document of kind from r.
func Parse(r io.Reader, kind Kind) (*Document, error) {
	layout, err := LayoutOf(kind)
	if err != nil {
		return nil, err
	}
	if !kind.Importable() {
		return nil, utils.UnsupportedKindError("parse", string(kind))
	}

	doc := &Document{Kind: kind}
	err = walk(r, layout, func(ordinal int, el element) {
		switch kind {
		case KindRepresentatives:
			doc.Representatives = append(doc.Representatives, RepresentativeRecord{
				Ordinal:   ordinal,
				Code:      el.get(tagCode),
				Name:      el.get(tagName),
				Surname:   el.get(tagSurname),
				Email:     el.get(tagEmail),
				BirthDate: utils.NormalizeDate(el.get(tagBirthDate)),
				Photo:     el.get(tagPhoto),
			})
		case KindPartners:
			doc.Partners = append(doc.Partners, PartnerRecord{
				Ordinal:   ordinal,
				Code:      el.get(tagCode),
				Name:      el.get(tagName),
				Address:   el.get(tagAddress),
				Province:  el.get(tagProvince),
				OwnerCode: el.get(tagOwnerCode),
				OwnerRef:  utils.IntOrDefault(el.get(tagOwnerRef), 0),
			})
		case KindMembers:
			m := MemberRecord{
				Ordinal:    ordinal,
				NationalID: utils.NormalizeNationalId(el.get(tagNationalID)),
				Name:       el.get(tagName),
				Surname:    el.get(tagSurname),
				Phone:      el.get(tagPhone),
				Email:      el.get(tagEmail),
				BirthDate:  utils.NormalizeDate(el.get(tagBirthDate)),
				Photo:      el.get(tagPhoto),
				OwnerCode:  el.get(tagOwnerCode),
			}
			for _, p := range el.lists[tagPurchases] {
				m.Purchases = append(m.Purchases, PurchaseRecord{
					ShipmentID:  p[tagShipmentID],
					ArticleCode: p[tagArticleCode],
					ArticleName: p[tagArticleName],
					Date:        utils.NormalizeDate(p[tagDate]),
					Quantity:    utils.IntOrDefault(p[tagQuantity], 0),
					Shipped:     utils.IntOrDefault(p[tagShipped], 0),
					UnitPrice:   utils.DecimalOrZero(p[tagUnitPrice]),
					Photo:       p[tagPhoto],
					Fulfilled:   utils.BoolOrFalse(p[tagFulfilled]),
				})
			}
			doc.Members = append(doc.Members, m)
		case KindCatalog:
			doc.Catalog = append(doc.Catalog, CatalogRecord{
				Ordinal:     ordinal,
				ArticleCode: el.get(tagArticleCode),
				Name:        el.get(tagName),
				UnitPrice:   utils.DecimalOrZero(el.get(tagUnitPrice)),
				Stock:       utils.IntOrDefault(el.get(tagStock), 0),
				Image:       el.get(tagImage),
			})
		case KindCredentials:
			doc.Credentials = append(doc.Credentials, CredentialRecord{
				Ordinal:            ordinal,
				Login:              el.get(tagLogin),
				Password:           el.get(tagPassword),
				RepresentativeRef:  utils.IntOrDefault(el.get(tagRepresentativeRef), 0),
				RepresentativeCode: el.get(tagRepresentativeCode),
			})
		case KindAgenda:
			doc.Visits = append(doc.Visits, VisitRecord{
				Ordinal:         ordinal,
				Date:            utils.NormalizeDate(el.get(tagDate)),
				Time:            el.get(tagTime),
				OwnerCode:       el.get(tagOwnerCode),
				CounterpartCode: el.get(tagCounterpartCode),
				Description:     el.get(tagDescription),
				Status:          el.get(tagStatus),
			})
		}
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// walk streams the document, calling fn for every record element in order. Elements that are
// not records, and record children the layout does not name, are skipped with their subtree.
func walk(r io.Reader, layout Layout, fn func(ordinal int, el element)) error {
	op := "parse " + string(layout.Kind)
	dec := xml.NewDecoder(r)

	root, err := firstElement(dec)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return utils.FormatError(op, "empty document")
		}
		return utils.FormatError(op, "%v", err)
	}
	if root.Name.Local != layout.Root {
		return utils.FormatError(op, "root element is <%s>, expected <%s>", root.Name.Local, layout.Root)
	}

	ordinal := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return utils.FormatError(op, "document ends before </%s>", layout.Root)
			}
			return utils.FormatError(op, "%v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != layout.Record {
				if err := dec.Skip(); err != nil {
					return utils.FormatError(op, "%v", err)
				}
				continue
			}
			ordinal++
			el, err := readRecord(dec, layout)
			if err != nil {
				return utils.FormatError(op, "record %d: %v", ordinal, err)
			}
			fn(ordinal, el)
		case xml.EndElement:
			return nil
		}
	}
}

func firstElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			return xml.StartElement{}, err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start, nil
		}
	}
}

func readRecord(dec *xml.Decoder, layout Layout) (element, error) {
	el := element{fields: map[string]string{}, lists: map[string][]map[string]string{}}
	for {
		tok, err := dec.Token()
		if err != nil {
			return el, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			if itemTag, ok := layout.Lists[name]; ok {
				items, err := readList(dec, itemTag, layout.ItemFields)
				if err != nil {
					return el, err
				}
				el.lists[name] = append(el.lists[name], items...)
				continue
			}
			if !layout.hasField(name) {
				if err := dec.Skip(); err != nil {
					return el, err
				}
				continue
			}
			text, err := readText(dec)
			if err != nil {
				return el, err
			}
			el.fields[name] = text
		case xml.EndElement:
			return el, nil
		}
	}
}

func readList(dec *xml.Decoder, itemTag string, fields []string) ([]map[string]string, error) {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}
	var items []map[string]string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != itemTag {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			item, err := readItem(dec, known)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		case xml.EndElement:
			return items, nil
		}
	}
}

func readItem(dec *xml.Decoder, known map[string]bool) (map[string]string, error) {
	item := map[string]string{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !known[t.Name.Local] {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			text, err := readText(dec)
			if err != nil {
				return nil, err
			}
			item[t.Name.Local] = text
		case xml.EndElement:
			return item, nil
		}
	}
}

// readText returns the trimmed character data of the current element, skipping nested elements.
func readText(dec *xml.Decoder) (string, error) {
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if err := dec.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			return strings.TrimSpace(b.String()), nil
		}
	}
}
