package handler

import (
	"time"

	"github.com/rl1809/stockcart/internal/core/domain"
)

type CartItemDTO struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CartLineDTO struct {
	ItemID    int64  `json:"item_id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type CartDTO struct {
	UserID   int64         `json:"user_id"`
	Lines    []CartLineDTO `json:"lines"`
	Subtotal string        `json:"subtotal"`
}

type SaleDTO struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	Quantity   int       `json:"quantity"`
	TotalPrice string    `json:"total_price"`
	SoldAt     time.Time `json:"sold_at"`
}

func toCartItemDTO(item *domain.CartItem) *CartItemDTO {
	return &CartItemDTO{
		ID:        item.ID,
		CartID:    item.CartID,
		ProductID: item.ProductID,
		Quantity:  item.Quantity,
	}
}

func toCartDTO(view *domain.CartView) *CartDTO {
	dto := &CartDTO{
		UserID:   view.UserID,
		Lines:    make([]CartLineDTO, 0, len(view.Lines)),
		Subtotal: view.Subtotal.StringFixed(2),
	}
	for _, line := range view.Lines {
		dto.Lines = append(dto.Lines, CartLineDTO{
			ItemID:    line.ItemID,
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.StringFixed(2),
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal.StringFixed(2),
		})
	}
	return dto
}

func toSaleDTOs(sales []domain.Sale) []SaleDTO {
	out := make([]SaleDTO, 0, len(sales))
	for _, s := range sales {
		out = append(out, SaleDTO{
			ID:         s.ID,
			ProductID:  s.ProductID,
			Quantity:   s.Quantity,
			TotalPrice: s.TotalPrice.StringFixed(2),
			SoldAt:     s.SoldAt,
		})
	}
	return out
}
