package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"medisync/internal/domain/marketplace"
)

type productRepo struct {
	mu   sync.RWMutex
	byID map[string]marketplace.Product
}

func NewProductRepo() marketplace.ProductRepository {
	return &productRepo{
		byID: make(map[string]marketplace.Product),
	}
}

func (r *productRepo) Create(ctx context.Context, p marketplace.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(p.ID) == "" {
		return errors.New("product id required")
	}
	if _, exists := r.byID[p.ID]; exists {
		return errors.New("product already exists")
	}
	r.byID[p.ID] = p
	return nil
}

func (r *productRepo) Update(ctx context.Context, p marketplace.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; !exists {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id string) (marketplace.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return marketplace.Product{}, ErrNotFound
	}
	return p, nil
}

func (r *productRepo) List(ctx context.Context, filter marketplace.ProductFilter) ([]marketplace.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]marketplace.Product, 0)
	for _, p := range r.byID {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if q := strings.TrimSpace(filter.Query); q != "" {
			hay := strings.ToLower(p.Name + " " + p.Description)
			if !strings.Contains(hay, strings.ToLower(q)) {
				continue
			}
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return out, nil
}

type cartRepo struct {
	mu     sync.RWMutex
	byUser map[string]marketplace.Cart
}

func NewCartRepo() marketplace.CartRepository {
	return &cartRepo{
		byUser: make(map[string]marketplace.Cart),
	}
}

func (r *cartRepo) Get(ctx context.Context, userID string) (marketplace.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUser[userID]
	if !ok {
		return marketplace.Cart{}, ErrNotFound
	}
	return c, nil
}

func (r *cartRepo) Save(ctx context.Context, c marketplace.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("cart user id required")
	}
	r.byUser[c.UserID] = c
	return nil
}

func (r *cartRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byUser, userID)
	return nil
}
