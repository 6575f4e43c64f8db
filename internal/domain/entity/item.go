// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Source, HealthRecord and NewItem,
// along with their validation rules and domain-specific errors.
package entity

import "time"

// FeedItem is a single entry parsed from a feed.
type FeedItem struct {
	// ID is the stable identifier of the entry (its link).
	ID        string
	Title     string
	Summary   string
	Published *time.Time
}

// NewItem is an entry discovered during this run that was not previously seen.
type NewItem struct {
	ID         string
	Title      string
	SourceName string
	Summary    string
	Published  *time.Time
}
