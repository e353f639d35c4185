// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used by the publisher and the consumer.
const (
	ReviewActivityQueue     = "review.activity"
	AccountDeactivatedQueue = "account.deactivated"
)

// ReviewActivityEvent is published after a review mutation commits. It
// carries the recomputed product rating so downstream consumers can log or
// trigger notifications without querying the primary database.
type ReviewActivityEvent struct {
	Action     string  `json:"action"` // "created" | "retracted"
	ReviewID   uint64  `json:"review_id"`
	ProductID  uint64  `json:"product_id"`
	UserID     uint64  `json:"user_id"`
	Grade      int     `json:"grade"`
	NewRating  float64 `json:"new_rating"`
	OccurredAt string  `json:"occurred_at"`
}

// AccountDeactivatedEvent is published after an account deactivation and
// its cascade commit. The counters record how many owned records the
// cascade touched.
type AccountDeactivatedEvent struct {
	UserID                uint64 `json:"user_id"`
	Role                  string `json:"role"`
	ProductsDeactivated   int64  `json:"products_deactivated"`
	ReviewsRetracted      int64  `json:"reviews_retracted"`
	CategoriesDeactivated int64  `json:"categories_deactivated"`
	OccurredAt            string `json:"occurred_at"`
}
