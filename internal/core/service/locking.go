package service

import (
	"context"
	"sort"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

// lockProducts locks the products referenced by items in ascending id
// order. Products that no longer exist are absent from the result.
func lockProducts(ctx context.Context, tx port.Tx, items []domain.CartItem) (map[int64]*domain.Product, error) {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products := make(map[int64]*domain.Product, len(ids))
	for _, id := range ids {
		product, err := tx.LockProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		if product != nil {
			products[id] = product
		}
	}
	return products, nil
}
