package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/intisor/AnnounceHub/internal/announce"
	"github.com/intisor/AnnounceHub/internal/domain"
	apperrors "github.com/intisor/AnnounceHub/internal/errors"
)

// announcementColumns must match the Scan order in the queries below.
const announcementColumns = `id, message, created_at`

// AnnouncementRepo implements domain.AnnouncementRepository backed by
// PostgreSQL. Id assignment is serialized by the BIGSERIAL sequence, so
// concurrent appends each receive a distinct, strictly increasing id while
// List stays read-committed.
type AnnouncementRepo struct {
	pool             *pgxpool.Pool
	clock            clockwork.Clock
	maxMessageLength int
}

// NewAnnouncementRepo creates an AnnouncementRepo from the shared pool.
func NewAnnouncementRepo(pool *pgxpool.Pool, clock clockwork.Clock, maxMessageLength int) *AnnouncementRepo {
	return &AnnouncementRepo{pool: pool, clock: clock, maxMessageLength: maxMessageLength}
}

// Append validates message, stamps the current time, and inserts the
// record. A failed insert is treated as not-happened; nothing partial is
// ever visible to List.
func (r *AnnouncementRepo) Append(ctx context.Context, message string) (domain.Announcement, error) {
	if err := announce.ValidateMessage(message, r.maxMessageLength); err != nil {
		return domain.Announcement{}, err
	}

	record := domain.Announcement{
		Message:   message,
		CreatedAt: r.clock.Now().UTC(),
	}

	query := `INSERT INTO announcements (message, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.pool.QueryRow(ctx, query, record.Message, record.CreatedAt).Scan(&record.ID); err != nil {
		return domain.Announcement{}, apperrors.StorageError("failed to append announcement", err)
	}

	return record, nil
}

// List returns all announcements in ascending id order.
func (r *AnnouncementRepo) List(ctx context.Context) ([]domain.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, apperrors.StorageError("failed to list announcements", err)
	}
	defer rows.Close()

	var records []domain.Announcement
	for rows.Next() {
		var record domain.Announcement
		if err := rows.Scan(&record.ID, &record.Message, &record.CreatedAt); err != nil {
			return nil, apperrors.StorageError("failed to scan announcement", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.StorageError("failed to read announcements", err)
	}

	return records, nil
}

var _ domain.AnnouncementRepository = (*AnnouncementRepo)(nil)
