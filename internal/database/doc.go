// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling with hand-written SQL and startup
// migrations. Repositories implement domain interfaces:
// AnnouncementRepository, UserRepository.
package database
