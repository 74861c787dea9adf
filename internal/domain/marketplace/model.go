package marketplace

import "time"

// Product es una entrada del catálogo de la farmacia de demo.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string // "otc", "vitamins", "first_aid", "devices"

	PriceCents int64
	Stock      int

	RequiresPrescription bool
	ImageURL             string
}

// Cart es el carrito transitorio de un usuario. No se persiste:
// se reconstruye en cada sesión.
type Cart struct {
	UserID    string
	Items     []CartItem
	UpdatedAt time.Time
}

type CartItem struct {
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// Order es el resumen que devuelve el checkout. No hay fulfillment real.
type Order struct {
	ID         string
	UserID     string
	Lines      []OrderLine
	TotalCents int64
	CreatedAt  time.Time
}

type OrderLine struct {
	Product    Product
	Quantity   int
	PriceCents int64 // precio unitario al momento del checkout
}
