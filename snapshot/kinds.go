// Package snapshot reads and writes the hierarchical XML documents exchanged with the back office,
// one document per record kind, and the flat text mirror sent next to every export.
package snapshot

import (
	"path/filepath"
	"strings"

	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type Kind string

const (
	KindRepresentatives Kind = "representatives"
	KindPartners        Kind = "partners"
	KindMembers         Kind = "members"
	KindCatalog         Kind = "catalog"
	KindCredentials     Kind = "credentials"
	KindAgenda          Kind = "agenda"
	// KindOrders is written, never read.
	KindOrders Kind = "orders"
)

// Tag names shared by the parser and the writer.
const (
	tagCode               = "code"
	tagName               = "name"
	tagSurname            = "surname"
	tagEmail              = "email"
	tagBirthDate          = "birth_date"
	tagPhoto              = "photo"
	tagAddress            = "address"
	tagProvince           = "province"
	tagOwnerCode          = "owner_code"
	tagOwnerRef           = "owner_ref"
	tagNationalID         = "national_id"
	tagPhone              = "phone"
	tagPurchases          = "purchases"
	tagPurchase           = "purchase"
	tagShipmentID         = "shipment_id"
	tagArticleCode        = "article_code"
	tagArticleName        = "article_name"
	tagDate               = "date"
	tagTime               = "time"
	tagQuantity           = "quantity"
	tagShipped            = "shipped"
	tagUnitPrice          = "unit_price"
	tagFulfilled          = "fulfilled"
	tagStock              = "stock"
	tagImage              = "image"
	tagLogin              = "login"
	tagPassword           = "password"
	tagRepresentativeRef  = "representative_ref"
	tagRepresentativeCode = "representative_code"
	tagCounterpartCode    = "counterpart_code"
	tagDescription        = "description"
	tagStatus             = "status"
	tagNumber             = "number"
	tagDelegation         = "delegation"
	tagTotal              = "total"
	tagLines              = "lines"
	tagLine               = "line"
)

// Layout is the fixed shape of one kind's document.
type Layout struct {
	Kind   Kind
	Root   string
	Record string
	File   string
	Fields []string
	// Lists maps a container child to the tag of its items, each read with ItemFields.
	Lists      map[string]string
	ItemFields []string
}

func (l Layout) hasField(tag string) bool {
	for _, f := range l.Fields {
		if f == tag {
			return true
		}
	}
	return false
}

var layouts = map[Kind]Layout{
	KindRepresentatives: {
		Kind: KindRepresentatives, Root: "representatives", Record: "representative", File: "representatives.xml",
		Fields: []string{tagCode, tagName, tagSurname, tagEmail, tagBirthDate, tagPhoto},
	},
	KindPartners: {
		Kind: KindPartners, Root: "partners", Record: "partner", File: "partners.xml",
		Fields: []string{tagCode, tagName, tagAddress, tagProvince, tagOwnerCode, tagOwnerRef},
	},
	KindMembers: {
		Kind: KindMembers, Root: "members", Record: "member", File: "members.xml",
		Fields: []string{tagNationalID, tagName, tagSurname, tagPhone, tagEmail, tagBirthDate, tagPhoto, tagOwnerCode},
		Lists:  map[string]string{tagPurchases: tagPurchase},
		ItemFields: []string{tagShipmentID, tagArticleCode, tagArticleName, tagDate, tagQuantity, tagShipped,
			tagUnitPrice, tagPhoto, tagFulfilled},
	},
	KindCatalog: {
		Kind: KindCatalog, Root: "catalog", Record: "item", File: "catalog.xml",
		Fields: []string{tagArticleCode, tagName, tagUnitPrice, tagStock, tagImage},
	},
	KindCredentials: {
		Kind: KindCredentials, Root: "credentials", Record: "credential", File: "credentials.xml",
		Fields: []string{tagLogin, tagPassword, tagRepresentativeRef, tagRepresentativeCode},
	},
	KindAgenda: {
		Kind: KindAgenda, Root: "agenda", Record: "visit", File: "agenda.xml",
		Fields: []string{tagDate, tagTime, tagOwnerCode, tagCounterpartCode, tagDescription, tagStatus},
	},
	KindOrders: {
		Kind: KindOrders, Root: "orders", Record: "order", File: "orders.xml",
		Fields:     []string{tagNumber, tagDate, tagOwnerCode, tagDelegation, tagCounterpartCode, tagTotal},
		Lists:      map[string]string{tagLines: tagLine},
		ItemFields: []string{tagArticleCode, tagArticleName, tagQuantity, tagUnitPrice, tagTotal},
	},
}

// importOrder is the dependency order of a full import pass.
var importOrder = []Kind{KindRepresentatives, KindPartners, KindMembers, KindCatalog, KindCredentials, KindAgenda}

// ImportKinds lists the importable kinds in the order a full pass reconciles them.
func ImportKinds() []Kind {
	out := make([]Kind, len(importOrder))
	copy(out, importOrder)
	return out
}

func (k Kind) Importable() bool {
	for _, i := range importOrder {
		if i == k {
			return true
		}
	}
	return false
}

func LayoutOf(kind Kind) (Layout, error) {
	l, ok := layouts[kind]
	if !ok {
		return Layout{}, utils.UnsupportedKindError("layout", string(kind))
	}
	return l, nil
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := layouts[k]; !ok {
		return "", utils.UnsupportedKindError("parse kind", s)
	}
	return k, nil
}

// KindFromFileName maps a display name such as "Catalog.XML" or "members_2026-10.xml" to an
// importable kind.
func KindFromFileName(name string) (Kind, error) {
	base := strings.ToLower(filepath.Base(strings.TrimSpace(name)))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, k := range importOrder {
		s := string(k)
		if base == s || strings.HasPrefix(base, s+"_") || strings.HasPrefix(base, s+"-") {
			return k, nil
		}
	}
	return "", utils.UnsupportedKindError("kind from file name", name)
}
