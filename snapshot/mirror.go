package snapshot

import (
	"fmt"
	"io"
	"strings"
)

var labels = map[string]string{
	tagCode:               "Code",
	tagName:               "Name",
	tagSurname:            "Surname",
	tagEmail:              "Email",
	tagBirthDate:          "Birth date",
	tagPhoto:              "Photo",
	tagAddress:            "Address",
	tagProvince:           "Province",
	tagOwnerCode:          "Representative",
	tagNationalID:         "National id",
	tagPhone:              "Phone",
	tagPurchases:          "Purchases",
	tagShipmentID:         "Shipment",
	tagArticleCode:        "Article",
	tagArticleName:        "Article name",
	tagDate:               "Date",
	tagTime:               "Time",
	tagQuantity:           "Quantity",
	tagShipped:            "Shipped",
	tagUnitPrice:          "Unit price",
	tagFulfilled:          "Fulfilled",
	tagStock:              "Stock",
	tagImage:              "Image",
	tagCounterpartCode:    "Customer",
	tagDescription:        "Description",
	tagStatus:             "Status",
	tagNumber:             "Order",
	tagDelegation:         "Delegation",
	tagTotal:              "Total",
	tagLines:              "Lines",
	tagRepresentativeCode: "Representative",
}

func label(tag string) string {
	if l, ok := labels[tag]; ok {
		return l
	}
	return tag
}

// WriteText renders the flat mirror of tree: a title, then "Label: value" lines per record
// separated by "---". Nested items are indented under their group label.
func WriteText(out io.Writer, tree *Tree) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n\n", strings.ToUpper(tree.Title))
	for _, rec := range tree.Records {
		for _, f := range rec.Fields {
			fmt.Fprintf(&b, "%s: %s\n", label(f.Tag), f.Value)
		}
		for _, g := range rec.Groups {
			fmt.Fprintf(&b, "%s:\n", label(g.Tag))
			for _, item := range g.Items {
				for i, f := range item {
					prefix := "    "
					if i == 0 {
						prefix = "  - "
					}
					fmt.Fprintf(&b, "%s%s: %s\n", prefix, label(f.Tag), f.Value)
				}
			}
		}
		b.WriteString("---\n")
	}
	_, err := io.WriteString(out, b.String())
	return err
}
