package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/stockcart/internal/core/domain"
	"github.com/rl1809/stockcart/internal/port"
)

// MemoryAdapter keeps everything in process. Transactions run one at a
// time against a copy of the state that replaces it only on commit, so a
// failed unit leaves nothing behind.
type MemoryAdapter struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	products map[int64]domain.Product
	carts    map[int64]domain.Cart
	items    map[int64]domain.CartItem
	sales    map[int64]domain.Sale
	seq      int64
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{state: &memState{
		products: make(map[int64]domain.Product),
		carts:    make(map[int64]domain.Cart),
		items:    make(map[int64]domain.CartItem),
		sales:    make(map[int64]domain.Sale),
	}}
}

func (s *memState) clone() *memState {
	c := &memState{
		products: make(map[int64]domain.Product, len(s.products)),
		carts:    make(map[int64]domain.Cart, len(s.carts)),
		items:    make(map[int64]domain.CartItem, len(s.items)),
		sales:    make(map[int64]domain.Sale, len(s.sales)),
		seq:      s.seq,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	return c
}

func (s *memState) nextID() int64 {
	s.seq++
	return s.seq
}

func (m *MemoryAdapter) InTx(ctx context.Context, fn func(tx port.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := m.state.clone()
	if err := fn(&memTx{s: work}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// CreateProduct provisions a product, assigning an id when it has none.
func (m *MemoryAdapter) CreateProduct(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == 0 {
		p.ID = m.state.nextID()
	} else if p.ID > m.state.seq {
		m.state.seq = p.ID
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	m.state.products[p.ID] = *p
	return nil
}

func (m *MemoryAdapter) DeleteProduct(ctx context.Context, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.products, productID)
	return nil
}

func (m *MemoryAdapter) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.state.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryAdapter) ListLowStockProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Product
	for _, p := range m.state.products {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *MemoryAdapter) GetCartView(ctx context.Context, userID int64) (*domain.CartView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := &domain.CartView{UserID: userID, Subtotal: decimal.Zero}
	cart := m.state.cartOf(userID)
	if cart == nil {
		return view, nil
	}
	for _, item := range m.state.itemsOf(cart.ID) {
		p, ok := m.state.products[item.ProductID]
		if !ok {
			continue
		}
		line := domain.CartLine{
			ItemID:    item.ID,
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  item.Quantity,
			LineTotal: p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))),
		}
		view.Lines = append(view.Lines, line)
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	return view, nil
}

func (m *MemoryAdapter) ListSalesByUser(ctx context.Context, userID int64) ([]domain.Sale, error) {
	return m.filterSales(func(s domain.Sale) bool { return s.UserID == userID }), nil
}

func (m *MemoryAdapter) ListSalesBetween(ctx context.Context, from, to time.Time) ([]domain.Sale, error) {
	return m.filterSales(func(s domain.Sale) bool {
		return !s.SoldAt.Before(from) && s.SoldAt.Before(to)
	}), nil
}

func (m *MemoryAdapter) CountSales(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.sales), nil
}

func (m *MemoryAdapter) SumUnitsSold(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, s := range m.state.sales {
		total += s.Quantity
	}
	return total, nil
}

func (m *MemoryAdapter) filterSales(keep func(domain.Sale) bool) []domain.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Sale
	for _, s := range m.state.sales {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memState) cartOf(userID int64) *domain.Cart {
	for _, c := range s.carts {
		if c.UserID == userID {
			c := c
			return &c
		}
	}
	return nil
}

func (s *memState) itemsOf(cartID int64) []domain.CartItem {
	var out []domain.CartItem
	for _, item := range s.items {
		if item.CartID == cartID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memTx needs no row locks: the adapter mutex already serializes units.
type memTx struct {
	s *memState
}

func (t *memTx) LockProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	p, ok := t.s.products[productID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	p, ok := t.s.products[productID]
	if !ok || p.StockQuantity < quantity {
		return port.ErrStockGuard
	}
	p.StockQuantity -= quantity
	p.UpdatedAt = time.Now()
	t.s.products[productID] = p
	return nil
}

func (t *memTx) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	p, ok := t.s.products[productID]
	if !ok {
		return nil
	}
	p.StockQuantity += quantity
	p.UpdatedAt = time.Now()
	t.s.products[productID] = p
	return nil
}

func (t *memTx) LockCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	return t.s.cartOf(userID), nil
}

func (t *memTx) FindOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	if cart := t.s.cartOf(userID); cart != nil {
		return cart, nil
	}
	cart := domain.Cart{ID: t.s.nextID(), UserID: userID, CreatedAt: time.Now()}
	t.s.carts[cart.ID] = cart
	return &cart, nil
}

func (t *memTx) DeleteCart(ctx context.Context, cartID int64) error {
	delete(t.s.carts, cartID)
	for id, item := range t.s.items {
		if item.CartID == cartID {
			delete(t.s.items, id)
		}
	}
	return nil
}

func (t *memTx) FindCartItem(ctx context.Context, itemID int64) (*domain.CartItem, int64, error) {
	item, ok := t.s.items[itemID]
	if !ok {
		return nil, 0, nil
	}
	cart, ok := t.s.carts[item.CartID]
	if !ok {
		return nil, 0, nil
	}
	return &item, cart.UserID, nil
}

func (t *memTx) LockCartItem(ctx context.Context, itemID int64) (*domain.CartItem, error) {
	item, ok := t.s.items[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (t *memTx) LockCartItemByProduct(ctx context.Context, cartID, productID int64) (*domain.CartItem, error) {
	for _, item := range t.s.items {
		if item.CartID == cartID && item.ProductID == productID {
			item := item
			return &item, nil
		}
	}
	return nil, nil
}

func (t *memTx) ListCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	return t.s.itemsOf(cartID), nil
}

func (t *memTx) LockCartItems(ctx context.Context, cartID int64) ([]domain.CartItem, error) {
	return t.s.itemsOf(cartID), nil
}

func (t *memTx) CreateCartItem(ctx context.Context, item *domain.CartItem) error {
	now := time.Now()
	item.ID = t.s.nextID()
	item.CreatedAt, item.UpdatedAt = now, now
	t.s.items[item.ID] = *item
	return nil
}

func (t *memTx) SetCartItemQuantity(ctx context.Context, itemID int64, quantity int) error {
	item, ok := t.s.items[itemID]
	if !ok {
		return nil
	}
	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	t.s.items[itemID] = item
	return nil
}

func (t *memTx) DeleteCartItem(ctx context.Context, itemID int64) error {
	delete(t.s.items, itemID)
	return nil
}

func (t *memTx) DeleteCartItems(ctx context.Context, cartID int64) error {
	for id, item := range t.s.items {
		if item.CartID == cartID {
			delete(t.s.items, id)
		}
	}
	return nil
}

func (t *memTx) CountCartItems(ctx context.Context, cartID int64) (int, error) {
	return len(t.s.itemsOf(cartID)), nil
}

func (t *memTx) CreateSale(ctx context.Context, sale *domain.Sale) error {
	sale.ID = t.s.nextID()
	t.s.sales[sale.ID] = *sale
	return nil
}

func (t *memTx) LockSale(ctx context.Context, saleID int64) (*domain.Sale, error) {
	sale, ok := t.s.sales[saleID]
	if !ok {
		return nil, nil
	}
	return &sale, nil
}

func (t *memTx) DeleteSale(ctx context.Context, saleID int64) error {
	delete(t.s.sales, saleID)
	return nil
}
