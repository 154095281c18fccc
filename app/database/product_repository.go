package database

import (
	"fmt"
)

// SQLProductRepository reads the product inventory. The rows are written by
// the external product-management component; nothing here mutates them.
type SQLProductRepository struct {
	db *DB
}

var _ ProductRepository = (*SQLProductRepository)(nil)

func NewProductRepository(db *DB) *SQLProductRepository {
	return &SQLProductRepository{db: db}
}

// GetUserIDs returns the distinct IDs of users that own at least one
// product. Users without products have nothing to match against.
func (r *SQLProductRepository) GetUserIDs() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT user_id FROM products ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to get user ids: %w", err)
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id row: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user id rows: %w", err)
	}

	return userIDs, nil
}

func (r *SQLProductRepository) GetProductsByUser(userID string) ([]Product, error) {
	rows, err := r.db.Query(`
		SELECT id, user_id, name, brand, upc, normalized_name, created_at
		FROM products
		WHERE user_id = ?
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get products for user: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var product Product
		err := rows.Scan(
			&product.ID, &product.UserID, &product.Name, &product.Brand,
			&product.UPC, &product.NormalizedName, &product.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return products, nil
}

func (r *SQLProductRepository) GetProductCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get product count: %w", err)
	}
	return count, nil
}
