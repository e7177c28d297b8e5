// Package domain defines the core domain types and interfaces.
//
// Model types (Announcement, Identity, User) live next to the repository
// contracts their implementations satisfy. No implementation code - just
// contracts. Keeping interfaces here prevents circular imports between the
// store, hub, and server packages.
package domain
