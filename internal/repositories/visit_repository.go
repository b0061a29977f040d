package repositories

import (
	"database/sql"

	"github.com/Jeelislive/openRank-Backend/internal/models"
)

type VisitRepository struct {
	db *sql.DB
}

func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Record inserts the visit if the visitor hash has not been seen before.
// A repeat visit is a no-op, not an error.
func (r *VisitRepository) Record(visit *models.Visit) error {
	query := `INSERT INTO visits (id, visitor_hash, created_at) VALUES (?, ?, ?)`
	_, err := r.db.Exec(query, visit.ID, visit.VisitorHash, visit.CreatedAt)
	if err != nil && isUniqueConstraintErr(err) {
		return nil
	}
	return err
}

// Count returns the number of unique visitors seen so far.
func (r *VisitRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM visits`).Scan(&count)
	return count, err
}
