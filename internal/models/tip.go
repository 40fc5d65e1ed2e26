package models

import "time"

// DefaultTipTitle replaces a blank tip title.
const DefaultTipTitle = "Tip"

// Tip is an admin-authored content item shown on the public feed.
type Tip struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Text      string    `json:"text" db:"text"`
	ImageURL  *string   `json:"imageUrl" db:"image_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	CreatedBy *string   `json:"createdByUid" db:"created_by"`
}

// HasImage reports whether the tip carries a non-blank image URL.
func (t Tip) HasImage() bool {
	return t.ImageURL != nil && *t.ImageURL != ""
}

// NewTipRequest is the admin form for adding a tip.
type NewTipRequest struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
}
