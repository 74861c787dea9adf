package marketplace

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"medisync/internal/ports/assistant"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInsufficientItem = errors.New("insufficient stock")
	ErrEmptyCart        = errors.New("cart is empty")
)

type Service struct {
	products ProductRepository
	carts    CartRepository
	assist   assistant.MedicalAssistant
	now      func() time.Time
}

func NewService(products ProductRepository, carts CartRepository, assist assistant.MedicalAssistant) *Service {
	return &Service{
		products: products,
		carts:    carts,
		assist:   assist,
		now:      time.Now,
	}
}

func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error) {
	return s.products.List(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := s.products.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) GetCart(ctx context.Context, userID string) (Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Cart{}, ErrInvalidInput
	}
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		// Carrito vacío la primera vez.
		return Cart{UserID: userID, Items: []CartItem{}}, nil
	}
	return c, nil
}

// AddItem agrega (o acumula) un producto en el carrito.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (Cart, error) {
	if quantity <= 0 {
		return Cart{}, ErrInvalidInput
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return Cart{}, err
	}

	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	total := quantity
	for i, it := range c.Items {
		if it.ProductID == p.ID {
			total += it.Quantity
			if total > p.Stock {
				return Cart{}, ErrInsufficientItem
			}
			c.Items[i].Quantity = total
			c.UpdatedAt = s.now()
			if err := s.carts.Save(ctx, c); err != nil {
				return Cart{}, err
			}
			return c, nil
		}
	}

	if total > p.Stock {
		return Cart{}, ErrInsufficientItem
	}

	c.Items = append(c.Items, CartItem{ProductID: p.ID, Quantity: quantity, AddedAt: s.now()})
	c.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// SetItemQuantity fija la cantidad exacta; 0 elimina la línea.
func (s *Service) SetItemQuantity(ctx context.Context, userID, productID string, quantity int) (Cart, error) {
	if quantity < 0 {
		return Cart{}, ErrInvalidInput
	}

	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return Cart{}, err
	}

	found := false
	items := make([]CartItem, 0, len(c.Items))
	for _, it := range c.Items {
		if it.ProductID != strings.TrimSpace(productID) {
			items = append(items, it)
			continue
		}
		found = true
		if quantity == 0 {
			continue
		}
		p, err := s.GetProduct(ctx, it.ProductID)
		if err != nil {
			return Cart{}, err
		}
		if quantity > p.Stock {
			return Cart{}, ErrInsufficientItem
		}
		it.Quantity = quantity
		items = append(items, it)
	}
	if !found {
		return Cart{}, ErrNotFound
	}

	c.Items = items
	c.UpdatedAt = s.now()
	if err := s.carts.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *Service) ClearCart(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidInput
	}
	return s.carts.Delete(ctx, userID)
}

// Checkout descuenta stock de catálogo, vacía el carrito y devuelve el
// resumen de la orden. No hay pago ni fulfillment: es una farmacia mock.
func (s *Service) Checkout(ctx context.Context, userID string) (Order, error) {
	c, err := s.GetCart(ctx, userID)
	if err != nil {
		return Order{}, err
	}
	if len(c.Items) == 0 {
		return Order{}, ErrEmptyCart
	}

	// Primero validar todo el carrito, después aplicar.
	lines := make([]OrderLine, 0, len(c.Items))
	for _, it := range c.Items {
		p, err := s.GetProduct(ctx, it.ProductID)
		if err != nil {
			return Order{}, err
		}
		if it.Quantity > p.Stock {
			return Order{}, ErrInsufficientItem
		}
		lines = append(lines, OrderLine{Product: p, Quantity: it.Quantity, PriceCents: p.PriceCents})
	}

	now := s.now()
	order := Order{
		ID:        uuid.NewString(),
		UserID:    c.UserID,
		Lines:     lines,
		CreatedAt: now,
	}
	for i, line := range lines {
		p := line.Product
		p.Stock -= line.Quantity
		if err := s.products.Update(ctx, p); err != nil {
			return Order{}, err
		}
		order.Lines[i].Product = p
		order.TotalCents += line.PriceCents * int64(line.Quantity)
	}

	if err := s.carts.Delete(ctx, c.UserID); err != nil {
		return Order{}, err
	}
	return order, nil
}

// SearchWithAssistant resuelve una búsqueda en lenguaje natural a
// productos del catálogo vía el asistente.
func (s *Service) SearchWithAssistant(ctx context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}

	catalog, err := s.products.List(ctx, ProductFilter{})
	if err != nil {
		return nil, err
	}

	ids, err := s.assist.SearchProducts(ctx, query, toSummaries(catalog))
	if err != nil {
		return nil, err
	}

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		// IDs inventados por el modelo se descartan en silencio.
		if p, err := s.products.GetByID(ctx, id); err == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// BuildCartWithAssistant arma el carrito a partir de una necesidad
// descrita en lenguaje natural ("me corté cocinando").
func (s *Service) BuildCartWithAssistant(ctx context.Context, userID, query string) (Cart, []assistant.CartSuggestion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Cart{}, nil, ErrInvalidInput
	}

	catalog, err := s.products.List(ctx, ProductFilter{})
	if err != nil {
		return Cart{}, nil, err
	}

	suggestions, err := s.assist.BuildCart(ctx, query, toSummaries(catalog))
	if err != nil {
		return Cart{}, nil, err
	}

	cart, _ := s.GetCart(ctx, userID)
	for _, sug := range suggestions {
		qty := sug.Quantity
		if qty <= 0 {
			qty = 1
		}
		if updated, err := s.AddItem(ctx, userID, sug.ProductID, qty); err == nil {
			cart = updated
		}
	}
	return cart, suggestions, nil
}

func toSummaries(products []Product) []assistant.ProductSummary {
	out := make([]assistant.ProductSummary, 0, len(products))
	for _, p := range products {
		out = append(out, assistant.ProductSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
		})
	}
	return out
}
