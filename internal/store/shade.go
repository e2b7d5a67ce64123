package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/lipstick/internal/shade"
)

// ShadeRepository provides access to the shade catalog.
type ShadeRepository struct {
	db *sql.DB
}

// Shades returns the shade repository for this store.
func (s *Store) Shades() *ShadeRepository {
	return &ShadeRepository{db: s.db}
}

// List returns every shade ordered by id.
func (r *ShadeRepository) List() ([]shade.Shade, error) {
	rows, err := r.db.Query(
		`SELECT id, code, display_name, color_hex FROM shades ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shades []shade.Shade
	for rows.Next() {
		var sh shade.Shade
		if err := rows.Scan(&sh.ID, &sh.Code, &sh.DisplayName, &sh.ColorHex); err != nil {
			return nil, err
		}
		shades = append(shades, sh)
	}
	return shades, rows.Err()
}

// GetByID returns one shade.
func (r *ShadeRepository) GetByID(id int) (shade.Shade, error) {
	var sh shade.Shade
	err := r.db.QueryRow(
		`SELECT id, code, display_name, color_hex FROM shades WHERE id = ?`,
		id,
	).Scan(&sh.ID, &sh.Code, &sh.DisplayName, &sh.ColorHex)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return shade.Shade{}, ErrNotFound
		}
		return shade.Shade{}, err
	}
	return sh, nil
}

// Upsert inserts or replaces a shade. The color is normalized first, so
// only valid hex colors and the none sentinel are stored.
func (r *ShadeRepository) Upsert(sh shade.Shade) error {
	hex, err := shade.Normalize(sh.ColorHex)
	if err != nil {
		return fmt.Errorf("shade %d: %w", sh.ID, err)
	}

	now := time.Now()
	_, err = r.db.Exec(
		`INSERT INTO shades (id, code, display_name, color_hex, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			display_name = excluded.display_name,
			color_hex = excluded.color_hex,
			updated_at = excluded.updated_at`,
		sh.ID, sh.Code, sh.DisplayName, hex, now, now,
	)
	return err
}

// Delete removes a shade.
func (r *ShadeRepository) Delete(id int) error {
	result, err := r.db.Exec(`DELETE FROM shades WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of shades.
func (r *ShadeRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM shades`).Scan(&n)
	return n, err
}

// SeedShades fills an empty catalog with shades. A catalog that already has
// rows is left untouched. It reports how many shades were inserted.
func SeedShades(s *Store, shades []shade.Shade) (int, error) {
	n, err := s.Shades().Count()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	now := time.Now()
	for _, sh := range shades {
		hex, err := shade.Normalize(sh.ColorHex)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("seed shade %d: %w", sh.ID, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO shades (id, code, display_name, color_hex, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sh.ID, sh.Code, sh.DisplayName, hex, now, now,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("seed shade %d: %w", sh.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(shades), nil
}
