// Package server implements the HTTP server using Echo framework.
//
// Routes: auth (register/login/logout with cookie sessions), announcements
// (public history, authenticated publish), /ws (live feed), health, metrics.
// Handlers split by concern: handlers.go, handlers_auth.go,
// handlers_health.go.
package server
