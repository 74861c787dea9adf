package marketplace

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"medisync/internal/middleware"
	"medisync/internal/platform/logger"
	"medisync/internal/ports/assistant"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, log logger.Logger) {
	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", listProductsHandler(svc))
		pr.Post("/search", searchProductsHandler(svc, log))
		pr.Get("/{productID}", getProductHandler(svc))
	})

	r.Route("/cart", func(cr chi.Router) {
		cr.Get("/", getCartHandler(svc))
		cr.Post("/items", addItemHandler(svc))
		cr.Patch("/items/{productID}", setQuantityHandler(svc))
		cr.Delete("/", clearCartHandler(svc))
		cr.Post("/checkout", checkoutHandler(svc))
		cr.Post("/build", buildCartHandler(svc, log))
	})
}

type productResponse struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Category             string `json:"category"`
	PriceCents           int64  `json:"price_cents"`
	Stock                int    `json:"stock"`
	RequiresPrescription bool   `json:"requires_prescription"`
	ImageURL             string `json:"image_url,omitempty"`
}

type cartItemResponse struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type cartResponse struct {
	UserID    string             `json:"user_id"`
	Items     []cartItemResponse `json:"items"`
	UpdatedAt time.Time          `json:"updated_at"`
}

type orderLineResponse struct {
	Product    productResponse `json:"product"`
	Quantity   int             `json:"quantity"`
	PriceCents int64           `json:"price_cents"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Lines      []orderLineResponse `json:"lines"`
	TotalCents int64               `json:"total_cents"`
	CreatedAt  time.Time           `json:"created_at"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type buildCartResponse struct {
	Cart        cartResponse               `json:"cart"`
	Suggestions []assistant.CartSuggestion `json:"suggestions"`
}

// listProductsHandler godoc
// @Summary Catálogo de la farmacia, con filtros opcionales
// @Tags marketplace
// @Produce json
// @Param category query string false "Categoría"
// @Param q query string false "Texto a buscar"
// @Success 200 {array} marketplace.productResponse
// @Router /products [get]
func listProductsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		items, err := svc.ListProducts(r.Context(), ProductFilter{
			Category: strings.TrimSpace(q.Get("category")),
			Query:    strings.TrimSpace(q.Get("q")),
		})
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]productResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toProductResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getProductHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProduct(r.Context(), chi.URLParam(r, "productID"))
		if err != nil {
			http.Error(w, "product not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toProductResponse(p))
	}
}

func searchProductsHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		items, err := svc.SearchWithAssistant(r.Context(), req.Query)
		if err != nil {
			if err == ErrInvalidInput {
				http.Error(w, "query required", http.StatusBadRequest)
				return
			}
			log.Warn("assistant product search failed", map[string]any{"err": err.Error()})
			http.Error(w, "assistant unavailable", http.StatusBadGateway)
			return
		}

		out := make([]productResponse, 0, len(items))
		for _, p := range items {
			out = append(out, toProductResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getCartHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		c, err := svc.GetCart(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toCartResponse(c))
	}
}

func addItemHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req addItemRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.AddItem(r.Context(), claims.UserID, req.ProductID, req.Quantity)
		if err != nil {
			writeCartError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCartResponse(c))
	}
}

func setQuantityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req setQuantityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.SetItemQuantity(r.Context(), claims.UserID, chi.URLParam(r, "productID"), req.Quantity)
		if err != nil {
			writeCartError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCartResponse(c))
	}
}

func clearCartHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.ClearCart(r.Context(), claims.UserID); err != nil {
			writeCartError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func checkoutHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		order, err := svc.Checkout(r.Context(), claims.UserID)
		if err != nil {
			writeCartError(w, err)
			return
		}

		out := orderResponse{
			ID:         order.ID,
			UserID:     order.UserID,
			TotalCents: order.TotalCents,
			CreatedAt:  order.CreatedAt,
			Lines:      make([]orderLineResponse, 0, len(order.Lines)),
		}
		for _, l := range order.Lines {
			out.Lines = append(out.Lines, orderLineResponse{
				Product:    toProductResponse(l.Product),
				Quantity:   l.Quantity,
				PriceCents: l.PriceCents,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func buildCartHandler(svc *Service, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		cart, suggestions, err := svc.BuildCartWithAssistant(r.Context(), claims.UserID, req.Query)
		if err != nil {
			if err == ErrInvalidInput {
				http.Error(w, "query required", http.StatusBadRequest)
				return
			}
			log.Warn("assistant cart build failed", map[string]any{"err": err.Error()})
			http.Error(w, "assistant unavailable", http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, buildCartResponse{
			Cart:        toCartResponse(cart),
			Suggestions: suggestions,
		})
	}
}

func writeCartError(w http.ResponseWriter, err error) {
	switch err {
	case ErrInvalidInput:
		http.Error(w, err.Error(), http.StatusBadRequest)
	case ErrNotFound:
		http.Error(w, "not found", http.StatusNotFound)
	case ErrInsufficientItem:
		http.Error(w, err.Error(), http.StatusConflict)
	case ErrEmptyCart:
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toProductResponse(p Product) productResponse {
	return productResponse{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		Category:             p.Category,
		PriceCents:           p.PriceCents,
		Stock:                p.Stock,
		RequiresPrescription: p.RequiresPrescription,
		ImageURL:             p.ImageURL,
	}
}

func toCartResponse(c Cart) cartResponse {
	out := cartResponse{
		UserID:    c.UserID,
		Items:     make([]cartItemResponse, 0, len(c.Items)),
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		out.Items = append(out.Items, cartItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			AddedAt:   it.AddedAt,
		})
	}
	return out
}

// writeJSON está duplicado intencionalmente en handlers de distintos módulos
// para evitar crear paquetes/helpers compartidos demasiado pronto.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
