package snapshot

import "github.com/shopspring/decimal"

// Every record carries its 1-based position in the document.

type RepresentativeRecord struct {
	Ordinal   int
	Code      string
	Name      string
	Surname   string
	Email     string
	BirthDate string
	Photo     string
}

type PartnerRecord struct {
	Ordinal   int
	Code      string
	Name      string
	Address   string
	Province  string
	OwnerCode string
	// OwnerRef is a 1-based position in the representatives document, 0 when absent.
	OwnerRef int
}

type MemberRecord struct {
	Ordinal    int
	NationalID string
	Name       string
	Surname    string
	Phone      string
	Email      string
	BirthDate  string
	Photo      string
	OwnerCode  string
	Purchases  []PurchaseRecord
}

type PurchaseRecord struct {
	ShipmentID  string
	ArticleCode string
	ArticleName string
	Date        string
	Quantity    int
	Shipped     int
	UnitPrice   decimal.Decimal
	Photo       string
	Fulfilled   bool
}

type CatalogRecord struct {
	Ordinal     int
	ArticleCode string
	Name        string
	UnitPrice   decimal.Decimal
	Stock       int
	Image       string
}

type CredentialRecord struct {
	Ordinal            int
	Login              string
	Password           string
	RepresentativeRef  int
	RepresentativeCode string
}

type VisitRecord struct {
	Ordinal         int
	Date            string
	Time            string
	OwnerCode       string
	CounterpartCode string
	Description     string
	Status          string
}

// Document is one parsed snapshot; only the slice matching Kind is filled.
type Document struct {
	Kind            Kind
	Representatives []RepresentativeRecord
	Partners        []PartnerRecord
	Members         []MemberRecord
	Catalog         []CatalogRecord
	Credentials     []CredentialRecord
	Visits          []VisitRecord
}

func (d *Document) Len() int {
	return len(d.Representatives) + len(d.Partners) + len(d.Members) + len(d.Catalog) +
		len(d.Credentials) + len(d.Visits)
}
