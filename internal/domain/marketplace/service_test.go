package marketplace

import (
	"context"
	"errors"
	"strings"
	"testing"

	"medisync/internal/ports/assistant"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testProductRepo struct {
	byID map[string]Product
}

func newTestProductRepo() *testProductRepo {
	return &testProductRepo{byID: map[string]Product{}}
}

func (r *testProductRepo) Create(ctx context.Context, p Product) error {
	r.byID[p.ID] = p
	return nil
}

func (r *testProductRepo) Update(ctx context.Context, p Product) error {
	if _, ok := r.byID[p.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testProductRepo) GetByID(ctx context.Context, id string) (Product, error) {
	p, ok := r.byID[id]
	if !ok {
		return Product{}, errRepoNotFound
	}
	return p, nil
}

func (r *testProductRepo) List(ctx context.Context, filter ProductFilter) ([]Product, error) {
	out := make([]Product, 0)
	for _, p := range r.byID {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if q := strings.ToLower(filter.Query); q != "" {
			if !strings.Contains(strings.ToLower(p.Name+" "+p.Description), q) {
				continue
			}
		}
		out = append(out, p)
	}
	return out, nil
}

type testCartRepo struct {
	byUser map[string]Cart
}

func newTestCartRepo() *testCartRepo {
	return &testCartRepo{byUser: map[string]Cart{}}
}

func (r *testCartRepo) Get(ctx context.Context, userID string) (Cart, error) {
	c, ok := r.byUser[userID]
	if !ok {
		return Cart{}, errRepoNotFound
	}
	return c, nil
}

func (r *testCartRepo) Save(ctx context.Context, c Cart) error {
	r.byUser[c.UserID] = c
	return nil
}

func (r *testCartRepo) Delete(ctx context.Context, userID string) error {
	delete(r.byUser, userID)
	return nil
}

// stubAssistant implementa solo lo que estos tests usan.
type stubAssistant struct {
	searchFn func(query string, catalog []assistant.ProductSummary) ([]string, error)
	buildFn  func(query string, catalog []assistant.ProductSummary) ([]assistant.CartSuggestion, error)
}

var errStubNotWired = errors.New("stub: not wired")

func (s *stubAssistant) Reply(ctx context.Context, in assistant.ChatInput) (string, error) {
	return "", errStubNotWired
}

func (s *stubAssistant) SmartReplies(ctx context.Context, history []assistant.Turn) ([]string, error) {
	return nil, errStubNotWired
}

func (s *stubAssistant) CheckInteractions(ctx context.Context, medications []string) (assistant.InteractionReport, error) {
	return assistant.InteractionReport{}, errStubNotWired
}

func (s *stubAssistant) AnalyzeWound(ctx context.Context, img assistant.Image) (assistant.WoundAnalysis, error) {
	return assistant.WoundAnalysis{}, errStubNotWired
}

func (s *stubAssistant) IdentifyPill(ctx context.Context, img assistant.Image) (assistant.PillMatch, error) {
	return assistant.PillMatch{}, errStubNotWired
}

func (s *stubAssistant) ExtractPrescription(ctx context.Context, img assistant.Image) (assistant.ExtractedMedication, error) {
	return assistant.ExtractedMedication{}, errStubNotWired
}

func (s *stubAssistant) SearchProducts(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]string, error) {
	if s.searchFn == nil {
		return nil, errStubNotWired
	}
	return s.searchFn(query, catalog)
}

func (s *stubAssistant) BuildCart(ctx context.Context, query string, catalog []assistant.ProductSummary) ([]assistant.CartSuggestion, error) {
	if s.buildFn == nil {
		return nil, errStubNotWired
	}
	return s.buildFn(query, catalog)
}

func (s *stubAssistant) DietPlan(ctx context.Context, profile assistant.PatientProfile) (assistant.DietPlan, error) {
	return assistant.DietPlan{}, errStubNotWired
}

func seedProducts(t *testing.T, repo *testProductRepo) {
	t.Helper()
	products := []Product{
		{ID: "band-aid", Name: "Curitas", Category: "first_aid", PriceCents: 350, Stock: 20},
		{ID: "gauze", Name: "Gasas estériles", Category: "first_aid", PriceCents: 500, Stock: 4},
		{ID: "vitamin-c", Name: "Vitamina C", Category: "vitamins", PriceCents: 1200, Stock: 50},
	}
	for _, p := range products {
		if err := repo.Create(context.Background(), p); err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
}

// -------------------------
// Tests
// -------------------------

func TestService_AddItem_AccumulatesQuantity(t *testing.T) {
	products := newTestProductRepo()
	seedProducts(t, products)
	svc := NewService(products, newTestCartRepo(), &stubAssistant{})

	if _, err := svc.AddItem(context.Background(), "u1", "band-aid", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	c, err := svc.AddItem(context.Background(), "u1", "band-aid", 3)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}

	if len(c.Items) != 1 || c.Items[0].Quantity != 5 {
		t.Fatalf("expected one line with qty 5, got %+v", c.Items)
	}
}

func TestService_AddItem_RejectsOverStock(t *testing.T) {
	products := newTestProductRepo()
	seedProducts(t, products)
	svc := NewService(products, newTestCartRepo(), &stubAssistant{})

	if _, err := svc.AddItem(context.Background(), "u1", "gauze", 5); err != ErrInsufficientItem {
		t.Fatalf("expected ErrInsufficientItem, got %v", err)
	}
}

func TestService_Checkout_DecrementsStock_ClearsCart(t *testing.T) {
	products := newTestProductRepo()
	seedProducts(t, products)
	svc := NewService(products, newTestCartRepo(), &stubAssistant{})

	if _, err := svc.AddItem(context.Background(), "u1", "band-aid", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddItem(context.Background(), "u1", "vitamin-c", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	order, err := svc.Checkout(context.Background(), "u1")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if order.TotalCents != 2*350+1200 {
		t.Fatalf("expected total %d, got %d", 2*350+1200, order.TotalCents)
	}

	p, _ := products.GetByID(context.Background(), "band-aid")
	if p.Stock != 18 {
		t.Fatalf("expected stock 18, got %d", p.Stock)
	}

	c, err := svc.GetCart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(c.Items) != 0 {
		t.Fatalf("expected empty cart after checkout, got %+v", c.Items)
	}
}

func TestService_Checkout_EmptyCart(t *testing.T) {
	products := newTestProductRepo()
	seedProducts(t, products)
	svc := NewService(products, newTestCartRepo(), &stubAssistant{})

	if _, err := svc.Checkout(context.Background(), "u1"); err != ErrEmptyCart {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestService_SearchWithAssistant_DropsUnknownIDs(t *testing.T) {
	products := newTestProductRepo()
	seedProducts(t, products)
	assist := &stubAssistant{
		searchFn: func(query string, catalog []assistant.ProductSummary) ([]string, error) {
			if len(catalog) != 3 {
				t.Fatalf("expected full catalog in prompt, got %d", len(catalog))
			}
			return []string{"band-aid", "made-up-id", "gauze"}, nil
		},
	}
	svc := NewService(products, newTestCartRepo(), assist)

	got, err := svc.SearchWithAssistant(context.Background(), "me corté cocinando")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products (unknown id dropped), got %d", len(got))
	}
}

func TestService_BuildCartWithAssistant(t *testing.T) {
	products := newTestProductRepo()
	seedProducts(t, products)
	assist := &stubAssistant{
		buildFn: func(query string, catalog []assistant.ProductSummary) ([]assistant.CartSuggestion, error) {
			return []assistant.CartSuggestion{
				{ProductID: "band-aid", Quantity: 2, Confidence: 0.9},
				{ProductID: "gauze", Quantity: 0, Confidence: 0.5}, // qty 0 => 1
				{ProductID: "nope", Quantity: 1, Confidence: 0.2},  // inexistente, se ignora
			}, nil
		},
	}
	svc := NewService(products, newTestCartRepo(), assist)

	cart, suggestions, err := svc.BuildCartWithAssistant(context.Background(), "u1", "botiquín básico")
	if err != nil {
		t.Fatalf("build cart: %v", err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("expected 3 raw suggestions, got %d", len(suggestions))
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 cart lines, got %+v", cart.Items)
	}
	for _, it := range cart.Items {
		if it.ProductID == "gauze" && it.Quantity != 1 {
			t.Fatalf("expected gauze qty defaulted to 1, got %d", it.Quantity)
		}
	}
}
