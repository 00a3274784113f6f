package snapshot

import (
	"context"
	"strconv"

	"github.com/mmdatafocus/fieldsales_backend/models"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

var exportModes = map[Kind][]models.ExportMode{
	KindRepresentatives: {models.ExportModeFull},
	KindPartners:        {models.ExportModeFull, models.ExportModeDelta},
	KindMembers:         {models.ExportModeFull, models.ExportModeDelta},
	KindCatalog:         {models.ExportModeFull},
	KindOrders:          {models.ExportModeDelta, models.ExportModePeriod},
	KindAgenda:          {models.ExportModeFull, models.ExportModePeriod},
}

var titles = map[Kind]string{
	KindRepresentatives: "Representatives",
	KindPartners:        "Partners",
	KindMembers:         "Members",
	KindCatalog:         "Catalog",
	KindOrders:          "Orders",
	KindAgenda:          "Agenda",
}

// Exportable reports whether kind can be written in mode.
func Exportable(kind Kind, mode models.ExportMode) bool {
	for _, m := range exportModes[kind] {
		if m == mode {
			return true
		}
	}
	return false
}

// Build runs the query for kind and mode and returns the tree both renderings are made from.
// Delta selects rows created today and period the rows dated in the current month.
func Build(ctx context.Context, kind Kind, mode models.ExportMode) (*Tree, error) {
	if !Exportable(kind, mode) {
		return nil, utils.UnsupportedKindError("export", string(kind)+"/"+string(mode))
	}
	layout := layouts[kind]
	today := utils.Today()
	tree := &Tree{
		Kind:   kind,
		Mode:   mode,
		Date:   today,
		Root:   layout.Root,
		Record: layout.Record,
		Title:  titles[kind],
	}
	if mode != models.ExportModeFull {
		tree.Title += " (" + string(mode) + " " + utils.ExportDate(today) + ")"
	}

	var err error
	switch kind {
	case KindRepresentatives:
		tree.Records, err = representativeNodes(ctx)
	case KindPartners:
		tree.Records, err = partnerNodes(ctx, mode, today)
	case KindMembers:
		tree.Records, err = memberNodes(ctx, mode, today)
	case KindCatalog:
		tree.Records, err = catalogNodes(ctx)
	case KindOrders:
		tree.Records, err = orderNodes(ctx, mode, today)
	case KindAgenda:
		tree.Records, err = visitNodes(ctx, mode)
	}
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func representativeNodes(ctx context.Context) ([]Node, error) {
	reps, err := models.ListRepresentatives(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(reps))
	for _, r := range reps {
		nodes = append(nodes, Node{Fields: []Field{
			{tagCode, r.Code},
			{tagName, r.Name},
			{tagSurname, r.Surname},
			{tagEmail, r.Email},
			{tagBirthDate, utils.ExportDate(r.BirthDate)},
			{tagPhoto, r.Photo},
		}})
	}
	return nodes, nil
}

func counterparts(ctx context.Context, band models.Band, mode models.ExportMode, today string) ([]*models.Counterpart, error) {
	if mode == models.ExportModeDelta {
		return models.ListCounterpartsCreatedOn(ctx, band, today)
	}
	return models.ListCounterparts(ctx, band)
}

func partnerNodes(ctx context.Context, mode models.ExportMode, today string) ([]Node, error) {
	rows, err := counterparts(ctx, models.BandPartner, mode, today)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(rows))
	for _, c := range rows {
		nodes = append(nodes, Node{Fields: []Field{
			{tagCode, c.Code},
			{tagName, c.Name},
			{tagAddress, c.Address},
			{tagProvince, c.Province},
			{tagOwnerCode, c.RepresentativeCode},
		}})
	}
	return nodes, nil
}

// memberNodes nests purchase lines only when a representative is signed in; they are scoped to them.
func memberNodes(ctx context.Context, mode models.ExportMode, today string) ([]Node, error) {
	rows, err := counterparts(ctx, models.BandMember, mode, today)
	if err != nil {
		return nil, err
	}
	var purchases map[string][]*models.PurchaseHistory
	if _, err := utils.RequireRepresentativeCode(ctx); err == nil && len(rows) > 0 {
		codes := make([]string, 0, len(rows))
		for _, c := range rows {
			codes = append(codes, c.Code)
		}
		if purchases, err = models.ListPurchaseHistoryByCounterparts(ctx, codes); err != nil {
			return nil, err
		}
	}

	nodes := make([]Node, 0, len(rows))
	for _, c := range rows {
		node := Node{Fields: []Field{
			{tagNationalID, c.NationalID},
			{tagName, c.Name},
			{tagSurname, c.Surname},
			{tagPhone, c.Phone},
			{tagEmail, c.Email},
			{tagBirthDate, utils.ExportDate(c.BirthDate)},
			{tagPhoto, c.Photo},
			{tagOwnerCode, c.RepresentativeCode},
		}}
		if lines := purchases[c.Code]; len(lines) > 0 {
			group := Group{Tag: tagPurchases, ItemTag: tagPurchase}
			for _, p := range lines {
				group.Items = append(group.Items, []Field{
					{tagShipmentID, p.ShipmentID},
					{tagArticleCode, p.ArticleCode},
					{tagArticleName, p.ArticleName},
					{tagDate, utils.ExportDate(p.PurchaseDate)},
					{tagQuantity, strconv.Itoa(p.Quantity)},
					{tagShipped, strconv.Itoa(p.Shipped)},
					{tagUnitPrice, p.UnitPrice.String()},
					{tagPhoto, p.Photo},
					{tagFulfilled, strconv.FormatBool(p.Fulfilled)},
				})
			}
			node.Groups = append(node.Groups, group)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func catalogNodes(ctx context.Context) ([]Node, error) {
	items, err := models.ListCatalogItems(ctx)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(items))
	for _, it := range items {
		nodes = append(nodes, Node{Fields: []Field{
			{tagArticleCode, it.ArticleCode},
			{tagName, it.Name},
			{tagUnitPrice, it.UnitPrice.String()},
			{tagStock, strconv.Itoa(it.Stock)},
			{tagImage, it.ImageName},
		}})
	}
	return nodes, nil
}

func orderNodes(ctx context.Context, mode models.ExportMode, today string) ([]Node, error) {
	var orders []*models.OrderHeader
	var err error
	if mode == models.ExportModeDelta {
		orders, err = models.ListOrdersCreatedOn(ctx, today)
	} else {
		from, to := utils.GetThisMonthRange()
		orders, err = models.ListOrdersBetween(ctx, from, to)
	}
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(orders))
	for _, o := range orders {
		group := Group{Tag: tagLines, ItemTag: tagLine}
		for _, l := range o.Lines {
			group.Items = append(group.Items, []Field{
				{tagArticleCode, l.ArticleCode},
				{tagArticleName, l.ArticleName},
				{tagQuantity, strconv.Itoa(l.Quantity)},
				{tagUnitPrice, l.UnitPrice.String()},
				{tagTotal, l.Total().StringFixed(2)},
			})
		}
		nodes = append(nodes, Node{
			Fields: []Field{
				{tagNumber, o.Number},
				{tagDate, utils.ExportDate(o.OrderDate)},
				{tagOwnerCode, o.OwnerCode},
				{tagDelegation, o.Delegation},
				{tagCounterpartCode, o.CounterpartCode},
				{tagTotal, o.Total().StringFixed(2)},
			},
			Groups: []Group{group},
		})
	}
	return nodes, nil
}

func visitNodes(ctx context.Context, mode models.ExportMode) ([]Node, error) {
	from, to := "", ""
	if mode == models.ExportModePeriod {
		from, to = utils.GetThisMonthRange()
	}
	visits, err := models.ListVisits(ctx, from, to)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, len(visits))
	for _, v := range visits {
		nodes = append(nodes, Node{Fields: []Field{
			{tagDate, utils.ExportDate(v.VisitDate)},
			{tagTime, v.VisitTime},
			{tagOwnerCode, v.OwnerCode},
			{tagCounterpartCode, v.CounterpartCode},
			{tagDescription, v.Description},
			{tagStatus, string(v.Status)},
		}})
	}
	return nodes, nil
}
