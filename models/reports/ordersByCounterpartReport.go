package reports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type OrdersByCounterpartResponse struct {
	CounterpartCode string          `json:"counterpart_code"`
	CounterpartName *string         `json:"counterpart_name,omitempty"`
	OrderCount      int             `json:"order_count"`
	UnitCount       int             `json:"unit_count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// GetOrdersByCounterpartReport aggregates the active representative's orders dated from..to.
func GetOrdersByCounterpartReport(ctx context.Context, fromDate string, toDate string) ([]*OrdersByCounterpartResponse, error) {

	sql := `
SELECT
    o.counterpart_code,
    counterparts.name AS counterpart_name,
    o.order_count,
    o.unit_count,
    o.total_amount
FROM
    (SELECT
        h.counterpart_code,
        COUNT(DISTINCT h.id) AS order_count,
        COALESCE(SUM(l.quantity), 0) AS unit_count,
        COALESCE(SUM(l.quantity * CAST(l.unit_price AS REAL)), 0) AS total_amount
    FROM
        order_headers h
        LEFT JOIN order_lines l ON l.order_number = h.number
    WHERE
        h.owner_code = @ownerCode
            AND h.order_date BETWEEN @fromDate AND @toDate
    GROUP BY h.counterpart_code) AS o
        LEFT JOIN
    counterparts ON counterparts.code = o.counterpart_code
ORDER BY o.counterpart_code;
`

	ownerCode, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}

	var records []*OrdersByCounterpartResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"ownerCode": ownerCode,
		"fromDate":  utils.NormalizeDate(fromDate),
		"toDate":    utils.NormalizeDate(toDate),
	}).Scan(&records).Error; err != nil {
		return nil, utils.StorageError("orders by counterpart", err)
	}
	for _, r := range records {
		r.TotalAmount = r.TotalAmount.Round(2)
	}
	return records, nil
}

func (r OrdersByCounterpartResponse) GetCellValues() []interface{} {
	return []interface{}{
		r.CounterpartCode,
		utils.DereferencePtr(r.CounterpartName, ""),
		r.OrderCount,
		r.UnitCount,
		r.TotalAmount.StringFixed(2),
	}
}
