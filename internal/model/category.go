package model

import "time"

// Category mirrors the `categories` table. Categories are created and
// owned by admin accounts and deactivate together with their owner.
type Category struct {
	ID          uint64    // categories.id
	Name        string    // categories.name
	Description *string   // categories.description (nullable)
	AdminID     uint64    // categories.admin_id
	IsActive    bool      // categories.is_active
	CreatedAt   time.Time // categories.created_at
	UpdatedAt   time.Time // categories.updated_at
}
