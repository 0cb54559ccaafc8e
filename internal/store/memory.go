// internal/store/memory.go
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/javajoker/marketplace-backend/internal/models"
	"github.com/javajoker/marketplace-backend/internal/utils"
)

// MemoryStore keeps everything in maps guarded by one mutex. Records are
// copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users    map[uint]models.User
	products map[uint]models.Product
	orders   map[uint]models.Order
	nextID   uint

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uint]models.User),
		products: make(map[uint]models.Product),
		orders:   make(map[uint]models.Order),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the timestamp source. Tests use it to date orders.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Users() UserStore       { return memUsers{s} }
func (s *MemoryStore) Products() ProductStore { return memProducts{s} }
func (s *MemoryStore) Orders() OrderStore     { return memOrders{s} }

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

// WithinTransaction serialises transactions and restores a snapshot when fn fails.
func (s *MemoryStore) WithinTransaction(ctx context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.users, s.products, s.orders, s.nextID = snap.users, snap.products, snap.orders, snap.nextID
		s.mu.Unlock()
		return err
	}
	return nil
}

type memSnapshot struct {
	users    map[uint]models.User
	products map[uint]models.Product
	orders   map[uint]models.Order
	nextID   uint
}

func (s *MemoryStore) snapshot() memSnapshot {
	snap := memSnapshot{
		users:    make(map[uint]models.User, len(s.users)),
		products: make(map[uint]models.Product, len(s.products)),
		orders:   make(map[uint]models.Order, len(s.orders)),
		nextID:   s.nextID,
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *MemoryStore) stamp(base *models.BaseModel) {
	s.nextID++
	base.ID = s.nextID
	now := s.now()
	if base.CreatedAt.IsZero() {
		base.CreatedAt = now
	}
	base.UpdatedAt = now
}

// withProduct attaches a copy of the referenced product. Caller holds mu.
func (s *MemoryStore) withProduct(o models.Order) models.Order {
	if p, ok := s.products[o.ProductID]; ok {
		o.Product = &p
	} else {
		o.Product = nil
	}
	return o
}

type memUsers struct{ s *MemoryStore }

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == user.Username || strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	r.s.stamp(&user.BaseModel)
	r.s.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r memUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Username == username || strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

type memProducts struct{ s *MemoryStore }

func (r memProducts) Create(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stamp(&product.BaseModel)
	stored := *product
	stored.Seller = nil
	r.s.products[product.ID] = stored
	return nil
}

func (r memProducts) Get(ctx context.Context, id uint) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r memProducts) Update(ctx context.Context, product *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[product.ID]
	if !ok {
		return ErrNotFound
	}
	p.Name = product.Name
	p.Description = product.Description
	p.Price = product.Price
	p.Image = product.Image
	p.UpdatedAt = r.s.now()
	r.s.products[p.ID] = p
	return nil
}

func (r memProducts) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.products, id)
	for oid, o := range r.s.orders {
		if o.ProductID == id {
			delete(r.s.orders, oid)
		}
	}
	return nil
}

func (r memProducts) List(ctx context.Context, params utils.PaginationParams) ([]models.Product, int64, error) {
	return r.list(params, func(models.Product) bool { return true })
}

func (r memProducts) ListBySeller(ctx context.Context, sellerID uint, params utils.PaginationParams) ([]models.Product, int64, error) {
	return r.list(params, func(p models.Product) bool { return p.SellerID == sellerID })
}

// list honours the id and created_at sort keys; any other key sorts by id.
func (r memProducts) list(params utils.PaginationParams, keep func(models.Product) bool) ([]models.Product, int64, error) {
	r.s.mu.Lock()
	var all []models.Product
	for _, p := range r.s.products {
		if keep(p) {
			all = append(all, p)
		}
	}
	r.s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if params.Order == "asc" {
			return all[i].ID < all[j].ID
		}
		return all[i].ID > all[j].ID
	})
	return paginate(all, params), int64(len(all)), nil
}

func (r memProducts) IncrementSales(ctx context.Context, id uint, amount int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.TotalSales++
	p.TotalSalesAmount += amount
	r.s.products[id] = p
	return nil
}

type memOrders struct{ s *MemoryStore }

func (r memOrders) Create(ctx context.Context, order *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[order.ProductID]; !ok {
		return ErrNotFound
	}
	for _, o := range r.s.orders {
		if o.GatewayOrderID == order.GatewayOrderID {
			return ErrDuplicate
		}
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	r.s.stamp(&order.BaseModel)
	stored := *order
	stored.Product = nil
	r.s.orders[order.ID] = stored
	return nil
}

func (r memOrders) Get(ctx context.Context, id uint) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = r.s.withProduct(o)
	return &o, nil
}

func (r memOrders) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var found *models.Order
	for _, o := range r.s.orders {
		if o.GatewayOrderID == gatewayOrderID && (found == nil || o.ID > found.ID) {
			o := r.s.withProduct(o)
			found = &o
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (r memOrders) TransitionStatus(ctx context.Context, id uint, from, to models.OrderStatus, paymentID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.HasPaid = to == models.OrderStatusPaid
	if paymentID != "" {
		o.GatewayPaymentID = paymentID
	}
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return true, nil
}

func (r memOrders) SetReceipt(ctx context.Context, id uint, path string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Receipt = path
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return nil
}

func (r memOrders) ListPaidWithoutReceipt(ctx context.Context) ([]models.Order, error) {
	orders := r.filter(func(o models.Order) bool {
		return o.Status == models.OrderStatusPaid && o.Receipt == ""
	})
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

func (r memOrders) ListPaidByEmail(ctx context.Context, email string, params utils.PaginationParams) ([]models.Order, int64, error) {
	orders := r.filter(func(o models.Order) bool {
		return o.Status == models.OrderStatusPaid && o.CustomerEmail == email
	})
	sort.Slice(orders, func(i, j int) bool {
		if params.Order == "asc" {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].ID > orders[j].ID
	})
	return paginate(orders, params), int64(len(orders)), nil
}

func (r memOrders) ListPaidSalesBySeller(ctx context.Context, sellerID uint) ([]Sale, error) {
	orders := r.filter(func(o models.Order) bool {
		return o.Status == models.OrderStatusPaid && o.Product != nil && o.Product.SellerID == sellerID
	})
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})

	sales := make([]Sale, 0, len(orders))
	for _, o := range orders {
		sales = append(sales, Sale{
			OrderID:     o.ID,
			ProductID:   o.ProductID,
			ProductName: o.Product.Name,
			Amount:      o.Amount,
			CreatedAt:   o.CreatedAt,
		})
	}
	return sales, nil
}

func (r memOrders) filter(keep func(models.Order) bool) []models.Order {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Order
	for _, o := range r.s.orders {
		o = r.s.withProduct(o)
		if keep(o) {
			out = append(out, o)
		}
	}
	return out
}

func paginate[T any](items []T, params utils.PaginationParams) []T {
	start := params.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
