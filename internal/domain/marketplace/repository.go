package marketplace

import "context"

type ProductRepository interface {
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, error)
}

type ProductFilter struct {
	Category string
	Query    string // matchea nombre + descripción, case-insensitive
}

// CartRepository guarda carritos por usuario. Solo tiene implementación
// in-memory: los carritos son estado de sesión y se pierden al reiniciar.
type CartRepository interface {
	Get(ctx context.Context, userID string) (Cart, error)
	Save(ctx context.Context, c Cart) error
	Delete(ctx context.Context, userID string) error
}
