package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"
)

// Category mirrors the 'categories' table: shared reference data managed by
// admins and consumed by offer filtering.
type Category struct {
    ID        uint64    `json:"id"`
    Name      string    `json:"name"`
    CreatedAt time.Time `json:"created_at"`
}

// ErrCategoryNotFound indicates the category does not exist.
var ErrCategoryNotFound = errors.New("category not found")

// CategoryRepo manages persistence for categories.
type CategoryRepo struct {
    db *sql.DB
}

// NewCategoryRepo returns a new CategoryRepo bound to the given database.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// List returns all categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]Category, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY name ASC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]Category, 0)
    for rows.Next() {
        var c Category
        if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, c)
    }
    return out, rows.Err()
}

// Create inserts a category.  Names are unique; duplicates return
// ErrConflict.
func (r *CategoryRepo) Create(ctx context.Context, c *Category) error {
    res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrConflict
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    c.ID = uint64(id)
    return nil
}

// Delete removes a category unless offers still reference its name, in
// which case ErrConflict is returned so the admin unpins the offers first.
func (r *CategoryRepo) Delete(ctx context.Context, id uint64) error {
    var name string
    err := r.db.QueryRowContext(ctx, `SELECT name FROM categories WHERE id = ?`, id).Scan(&name)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return ErrCategoryNotFound
        }
        return err
    }
    var inUse bool
    err = r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM offers WHERE category = ?)`, name).Scan(&inUse)
    if err != nil {
        return err
    }
    if inUse {
        return ErrConflict
    }
    _, err = r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
    return err
}
