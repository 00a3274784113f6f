package models

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type OrderHeader struct {
	ID              int         `gorm:"primaryKey" json:"id"`
	Number          string      `gorm:"uniqueIndex;not null" json:"number"`
	OrderDate       string      `gorm:"not null" json:"order_date"`
	OwnerCode       string      `gorm:"index;not null" json:"owner_code"`
	OwnerID         *int        `json:"owner_id"`
	Delegation      string      `gorm:"not null" json:"delegation"`
	CounterpartCode string      `gorm:"index;not null" json:"counterpart_code"`
	CounterpartID   *int        `json:"counterpart_id"`
	CreatedDate     string      `gorm:"not null" json:"created_date"`
	Lines           []OrderLine `gorm:"foreignKey:OrderNumber;references:Number" json:"lines"`
}

// OrderLine keeps the price the article had when the order was taken.
type OrderLine struct {
	ID          int             `gorm:"primaryKey" json:"id"`
	OrderNumber string          `gorm:"index;not null" json:"order_number"`
	ArticleCode string          `gorm:"not null" json:"article_code"`
	ArticleName string          `gorm:"not null" json:"article_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:TEXT;not null" json:"unit_price"`
}

func (o OrderHeader) GetOwnerCode() string { return o.OwnerCode }

func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (o OrderHeader) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Total())
	}
	return total
}

type NewOrderLine struct {
	ArticleCode string `json:"article_code" validate:"required"`
	Quantity    int    `json:"quantity" validate:"gt=0"`
}

type NewOrder struct {
	Number          string         `json:"number"`
	OrderDate       string         `json:"order_date" validate:"omitempty,storeddate"`
	Delegation      string         `json:"delegation"`
	CounterpartCode string         `json:"counterpart_code" validate:"required"`
	Lines           []NewOrderLine `json:"lines" validate:"required,min=1,dive"`
}

func NewOrderNumber() string {
	return "ORD-" + ulid.Make().String()
}

// CreateOrder stores an order for the active representative. Every referenced code must resolve;
// otherwise nothing is written and an INTEGRITY error is returned. Stock is decremented in the
// same transaction.
func CreateOrder(ctx context.Context, input *NewOrder) (*OrderHeader, error) {
	const op = "create order"
	ownerCode, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(op, input); err != nil {
		return nil, err
	}

	order := OrderHeader{
		Number:          strings.TrimSpace(input.Number),
		OrderDate:       utils.NormalizeDate(input.OrderDate),
		OwnerCode:       ownerCode,
		Delegation:      input.Delegation,
		CounterpartCode: strings.TrimSpace(input.CounterpartCode),
		CreatedDate:     utils.Today(),
	}
	if order.Number == "" {
		order.Number = NewOrderNumber()
	}
	if order.OrderDate == "" {
		order.OrderDate = order.CreatedDate
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := utils.FetchModelByKey[Representative](ctx, tx, "code", ownerCode)
		if err != nil {
			return utils.IntegrityError(op, "representative %s does not exist", ownerCode)
		}
		order.OwnerID = &owner.ID

		counterpart, err := utils.FetchModelByKey[Counterpart](ctx, tx, "code", order.CounterpartCode)
		if err != nil {
			return utils.IntegrityError(op, "counterpart %s does not exist", order.CounterpartCode)
		}
		order.CounterpartID = &counterpart.ID

		codes := make([]string, 0, len(input.Lines))
		for _, l := range input.Lines {
			codes = append(codes, strings.TrimSpace(l.ArticleCode))
		}
		missing, err := utils.ValidateResourceCodes[CatalogItem](ctx, tx, "article_code", codes)
		if err != nil {
			return utils.StorageError(op, err)
		}
		if len(missing) > 0 {
			return utils.IntegrityError(op, "articles %s do not exist", strings.Join(missing, ", "))
		}

		// numbers are unique across representatives
		unscoped := utils.SetSkipOwnerScopeInContext(ctx, true)
		count, err := utils.ResourceCountWhere[OrderHeader](unscoped, tx, "number = ?", order.Number)
		if err != nil {
			return utils.StorageError(op, err)
		}
		if count > 0 {
			return utils.IntegrityError(op, "order %s already exists", order.Number)
		}

		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return utils.StorageError(op, err)
		}

		for i, l := range input.Lines {
			item, err := utils.FetchModelByKey[CatalogItem](ctx, tx, "article_code", codes[i])
			if err != nil {
				return utils.StorageError(op, err)
			}
			line := OrderLine{
				OrderNumber: order.Number,
				ArticleCode: item.ArticleCode,
				ArticleName: item.Name,
				Quantity:    l.Quantity,
				UnitPrice:   item.UnitPrice,
			}
			if err := tx.Create(&line).Error; err != nil {
				return utils.StorageError(op, err)
			}
			err = tx.Model(&CatalogItem{}).Where("article_code = ?", item.ArticleCode).
				UpdateColumn("stock", gorm.Expr("stock - ?", l.Quantity)).Error
			if err != nil {
				return utils.StorageError(op, err)
			}
			order.Lines = append(order.Lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func GetOrder(ctx context.Context, number string) (*OrderHeader, error) {
	return GetOwnedResourceByKey[OrderHeader](ctx, "number", strings.TrimSpace(number), "Lines")
}

// ListOrdersBetween returns the active representative's orders dated from..to inclusive.
func ListOrdersBetween(ctx context.Context, from string, to string) ([]*OrderHeader, error) {
	orders, err := ListOwnedResource[OrderHeader](ctx, "order_date BETWEEN ? AND ?", []any{from, to}, "order_date", "id")
	if err != nil {
		return nil, err
	}
	return orders, loadOrderLines(ctx, orders)
}

// ListOrdersCreatedOn returns the active representative's orders taken on date.
func ListOrdersCreatedOn(ctx context.Context, date string) ([]*OrderHeader, error) {
	orders, err := ListOwnedResource[OrderHeader](ctx, "created_date = ?", []any{date}, "id")
	if err != nil {
		return nil, err
	}
	return orders, loadOrderLines(ctx, orders)
}

func loadOrderLines(ctx context.Context, orders []*OrderHeader) error {
	if len(orders) == 0 {
		return nil
	}
	numbers := make([]string, 0, len(orders))
	byNumber := make(map[string]*OrderHeader, len(orders))
	for _, o := range orders {
		numbers = append(numbers, o.Number)
		byNumber[o.Number] = o
	}
	var lines []OrderLine
	if err := config.GetDB().WithContext(ctx).Where("order_number IN ?", numbers).Order("id").Find(&lines).Error; err != nil {
		return utils.StorageError("load order lines", err)
	}
	for _, l := range lines {
		o := byNumber[l.OrderNumber]
		o.Lines = append(o.Lines, l)
	}
	return nil
}

// DeleteOrder removes one of the active representative's orders; its lines cascade.
func DeleteOrder(ctx context.Context, number string) (int64, error) {
	return DeleteOwnedResource[OrderHeader](ctx, "number", strings.TrimSpace(number))
}
