package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/petfinder-app/petfinder-backend/pkg/db/models"
	"github.com/petfinder-app/petfinder-backend/pkg/enums"
	"github.com/petfinder-app/petfinder-backend/pkg/pagination"
)

// OrderItemDTO is the snapshot line shown on confirmations and order history.
type OrderItemDTO struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name"`
	SKU            string     `json:"sku"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	LineTotalCents int64      `json:"line_total_cents"`
}

type PaymentDTO struct {
	ID          uuid.UUID           `json:"id"`
	Provider    string              `json:"provider"`
	Status      enums.PaymentStatus `json:"status"`
	AmountCents int64               `json:"amount_cents"`
	Currency    enums.Currency      `json:"currency"`
}

type AddressDTO struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Line1   string `json:"address"`
	City    string `json:"city"`
	Country string `json:"country"`
}

// OrderDTO is the API shape of an order.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	OrderNumber     string            `json:"order_number"`
	Status          enums.OrderStatus `json:"status"`
	Email           string            `json:"email"`
	CustomerName    string            `json:"customer_name"`
	Phone           string            `json:"phone"`
	Currency        enums.Currency    `json:"currency"`
	SubtotalCents   int64             `json:"subtotal_cents"`
	DiscountCents   int64             `json:"discount_cents"`
	ShippingCents   int64             `json:"shipping_cents"`
	TaxCents        int64             `json:"tax_cents"`
	TotalCents      int64             `json:"total_cents"`
	CouponID        *uuid.UUID        `json:"coupon_id,omitempty"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	Items           []OrderItemDTO    `json:"items"`
	Payments        []PaymentDTO      `json:"payments,omitempty"`
	ShippingAddress *AddressDTO       `json:"shipping_address,omitempty"`
}

// AdminListInput filters the admin listing.
type AdminListInput struct {
	Status *enums.OrderStatus
	pagination.Params
}

// ExpiryResult summarizes one expiry sweep.
type ExpiryResult struct {
	Scanned int
	Expired []uuid.UUID
}

func FromModel(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		Email:         o.Email,
		CustomerName:  o.CustomerName,
		Phone:         o.Phone,
		Currency:      o.Currency,
		SubtotalCents: o.SubtotalCents,
		DiscountCents: o.DiscountCents,
		ShippingCents: o.ShippingCents,
		TaxCents:      o.TaxCents,
		TotalCents:    o.TotalCents,
		CouponID:      o.CouponID,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
		Items:         make([]OrderItemDTO, len(o.Items)),
	}
	for i, item := range o.Items {
		dto.Items[i] = OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		}
	}
	for _, p := range o.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			ID:          p.ID,
			Provider:    p.Provider,
			Status:      p.Status,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
		})
	}
	return dto
}

func addressFromModel(a *models.Address) *AddressDTO {
	if a == nil {
		return nil
	}
	return &AddressDTO{
		Name:    a.Name,
		Email:   a.Email,
		Phone:   a.Phone,
		Line1:   a.Line1,
		City:    a.City,
		Country: a.Country,
	}
}
