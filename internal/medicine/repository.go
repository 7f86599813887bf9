// Package medicine manages the medicine catalog and its persistence.
package medicine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/medicuris/service/internal/db"
)

// Fields are the caller-supplied, fully overwritable attributes of a medicine.
type Fields struct {
	Name        string          `json:"name" example:"Aspirin"`
	Description string          `json:"description" example:"Pain reliever"`
	Price       decimal.Decimal `json:"price" swaggertype:"number" example:"4.99"`
	Quantity    int             `json:"quantity" example:"100"`
	ImageURL    string          `json:"imageUrl" example:"https://cdn.example.com/medicine-images/uploads/3f2a-aspirin.png"`
}

// Medicine is a catalog entry. ID is assigned by the database and never changes.
type Medicine struct {
	ID int64 `json:"id" example:"1"`
	Fields
}

// ErrNotFound is returned when a medicine does not exist.
var ErrNotFound = errors.New("medicine not found")

const medicineColumns = `id, name, description, price::text, quantity, image_url`

// Repository handles all medicine database operations.
type Repository struct {
	db db.Querier
}

// NewRepository creates a new Repository over the given connection pool.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Create inserts a new medicine and returns the stored record.
func (r *Repository) Create(ctx context.Context, f Fields) (*Medicine, error) {
	m, err := scanMedicine(r.db.QueryRow(ctx,
		`INSERT INTO medicines (name, description, price, quantity, image_url)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+medicineColumns,
		f.Name, f.Description, f.Price, f.Quantity, f.ImageURL,
	))
	if err != nil {
		return nil, fmt.Errorf("create medicine: %w", err)
	}
	return m, nil
}

// Update overwrites every mutable column of an existing medicine.
func (r *Repository) Update(ctx context.Context, id int64, f Fields) (*Medicine, error) {
	m, err := scanMedicine(r.db.QueryRow(ctx,
		`UPDATE medicines
		 SET name = $1, description = $2, price = $3, quantity = $4, image_url = $5
		 WHERE id = $6
		 RETURNING `+medicineColumns,
		f.Name, f.Description, f.Price, f.Quantity, f.ImageURL, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update medicine: %w", err)
	}
	return m, nil
}

// GetByID fetches a medicine by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Medicine, error) {
	m, err := scanMedicine(r.db.QueryRow(ctx,
		`SELECT `+medicineColumns+` FROM medicines WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get medicine by id: %w", err)
	}
	return m, nil
}

// List returns every medicine, or those whose name or description contains
// query (case-insensitive) when query is not empty.
func (r *Repository) List(ctx context.Context, query string) ([]Medicine, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if query == "" {
		rows, err = r.db.Query(ctx, `SELECT `+medicineColumns+` FROM medicines ORDER BY id`)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+medicineColumns+` FROM medicines
			 WHERE name ILIKE $1 OR description ILIKE $1
			 ORDER BY id`,
			containsPattern(query),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	defer rows.Close()

	medicines := make([]Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		medicines = append(medicines, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list medicines: %w", err)
	}
	return medicines, nil
}

// Delete removes the medicine if present. Deleting a missing id is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	return nil
}

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var (
		m     Medicine
		price string
	)
	if err := row.Scan(&m.ID, &m.Name, &m.Description, &price, &m.Quantity, &m.ImageURL); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	m.Price = p
	return &m, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching query as a literal substring.
func containsPattern(query string) string {
	return "%" + likeEscaper.Replace(query) + "%"
}
