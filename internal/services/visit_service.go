package services

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/internal/repositories"
)

// VisitService counts unique visitors. Identities are one-way hashes of
// client IP and user agent; no raw identity is stored.
type VisitService struct {
	visitRepo *repositories.VisitRepository
}

func NewVisitService(visitRepo *repositories.VisitRepository) *VisitService {
	return &VisitService{visitRepo: visitRepo}
}

// Record registers a visit for the given client identity. Repeat visits are
// no-ops.
func (s *VisitService) Record(clientIP, userAgent string) error {
	return s.visitRepo.Record(models.NewVisit(HashVisitor(clientIP, userAgent)))
}

// Count returns the number of unique visitors.
func (s *VisitService) Count() (int, error) {
	return s.visitRepo.Count()
}

// HashVisitor derives the stored visitor identity from IP and user agent.
func HashVisitor(clientIP, userAgent string) string {
	sum := sha256.Sum256([]byte(clientIP + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}
