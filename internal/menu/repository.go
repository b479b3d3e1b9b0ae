package menu

import (
	"context"
	"database/sql"
	"errors"
)

type Repository interface {
	List(ctx context.Context) ([]*Item, error)
	ListByCategory(ctx context.Context, category string) ([]*Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const itemColumns = `id, name, category, description, price, image_url, available`

func (r *repository) List(ctx context.Context) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM menu_items
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *repository) ListByCategory(ctx context.Context, category string) ([]*Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM menu_items
		WHERE category = $1
		ORDER BY name
	`, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Item, error) {
	var item Item
	err := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM menu_items
		WHERE id = $1
	`, id).Scan(
		&item.ID, &item.Name, &item.Category, &item.Description,
		&item.Price, &item.ImageURL, &item.Available,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Category, &item.Description,
			&item.Price, &item.ImageURL, &item.Available,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
