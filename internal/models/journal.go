package models

import (
	"strings"
	"time"
)

const (
	UntitledEntry  = "Untitled Entry"
	MaxJournalTags = 5
)

type JournalEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Title     string    `json:"title,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type JournalMetadata struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

// Normalize trims the title and keeps at most MaxJournalTags non-blank tags in order.
func (m *JournalMetadata) Normalize() {
	m.Title = strings.TrimSpace(m.Title)
	tags := make([]string, 0, len(m.Tags))
	for _, t := range m.Tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		tags = append(tags, t)
		if len(tags) == MaxJournalTags {
			break
		}
	}
	m.Tags = tags
}

// JournalDraft is the editor state handed to SaveJournalEntry.
type JournalDraft struct {
	Content      string           `json:"content"`
	Metadata     *JournalMetadata `json:"metadata,omitempty"`
	AutoMetadata bool             `json:"autoMetadata"`
}
