package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"medisync/internal/domain/marketplace"
)

type ProductsRepo struct {
	db *sql.DB
}

func NewProductsRepo(db *sql.DB) *ProductsRepo {
	return &ProductsRepo{db: db}
}

func (r *ProductsRepo) Create(ctx context.Context, p marketplace.Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, name, description, category,
			price_cents, stock, requires_prescription, image_url
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		p.ID, p.Name, p.Description, p.Category,
		p.PriceCents, p.Stock, p.RequiresPrescription, p.ImageURL,
	)
	return err
}

func (r *ProductsRepo) Update(ctx context.Context, p marketplace.Product) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, description = $3, category = $4,
			price_cents = $5, stock = $6, requires_prescription = $7, image_url = $8
		WHERE id = $1
	`,
		p.ID, p.Name, p.Description, p.Category,
		p.PriceCents, p.Stock, p.RequiresPrescription, p.ImageURL,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (marketplace.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return marketplace.Product{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, category, price_cents, stock, requires_prescription, image_url
		FROM products
		WHERE id = $1
	`, id)

	var p marketplace.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category,
		&p.PriceCents, &p.Stock, &p.RequiresPrescription, &p.ImageURL,
	)
	if err == sql.ErrNoRows {
		return marketplace.Product{}, ErrNotFound
	}
	return p, err
}

func (r *ProductsRepo) List(ctx context.Context, filter marketplace.ProductFilter) ([]marketplace.Product, error) {
	query := `
		SELECT id, name, description, category, price_cents, stock, requires_prescription, image_url
		FROM products
		WHERE 1=1`
	args := []any{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (LOWER(name) LIKE $` + n + ` OR LOWER(description) LIKE $` + n + `)`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]marketplace.Product, 0)
	for rows.Next() {
		var p marketplace.Product
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category,
			&p.PriceCents, &p.Stock, &p.RequiresPrescription, &p.ImageURL,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
