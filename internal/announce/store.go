package announce

import (
	"context"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/intisor/AnnounceHub/internal/domain"
	apperrors "github.com/intisor/AnnounceHub/internal/errors"
)

// ValidateMessage checks an announcement message against the configured
// bound. Shared by every AnnouncementRepository implementation so both
// stores reject the same inputs.
func ValidateMessage(message string, maxLength int) error {
	if strings.TrimSpace(message) == "" {
		return apperrors.ValidationError("announcement message must not be empty")
	}
	if len(message) > maxLength {
		return apperrors.ValidationError("announcement message too long").
			WithContext("max_length", maxLength)
	}
	return nil
}

// MemoryStore is an in-process AnnouncementRepository: a mutex-guarded
// append-only slice with monotonically assigned ids. Used in tests and
// anywhere durability is provided elsewhere.
type MemoryStore struct {
	mu               sync.RWMutex
	clock            clockwork.Clock
	maxMessageLength int
	records          []domain.Announcement
	nextID           int64
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(clock clockwork.Clock, maxMessageLength int) *MemoryStore {
	return &MemoryStore{
		clock:            clock,
		maxMessageLength: maxMessageLength,
		nextID:           1,
	}
}

// Append validates message, assigns the next id and current timestamp, and
// stores the record. Id assignment is serialized under the store mutex, so
// concurrent appends each receive a distinct, strictly increasing id.
func (s *MemoryStore) Append(_ context.Context, message string) (domain.Announcement, error) {
	if err := ValidateMessage(message, s.maxMessageLength); err != nil {
		return domain.Announcement{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := domain.Announcement{
		ID:        s.nextID,
		Message:   message,
		CreatedAt: s.clock.Now().UTC(),
	}
	s.nextID++
	s.records = append(s.records, record)
	return record, nil
}

// List returns all announcements in ascending id order. The returned slice
// is a copy; a record is either fully visible or not visible at all.
func (s *MemoryStore) List(_ context.Context) ([]domain.Announcement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.Announcement, len(s.records))
	copy(records, s.records)
	return records, nil
}

var _ domain.AnnouncementRepository = (*MemoryStore)(nil)
