package model

import "time"

// Review mirrors the `reviews` table. A review is written by exactly one
// buyer for exactly one product and is immutable once created: retracting
// it only flips IsActive to false, it is never rewritten to a different
// product or author.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – authoring buyer.
//  ProductID – reviewed product.
//  Comment   – optional free-form text.
//  Grade     – integer score, 1..5.
//  IsActive  – soft-delete marker; inactive reviews never contribute to a
//              product's rating.
//  CreatedAt – creation timestamp.
type Review struct {
	ID        uint64    // reviews.id
	UserID    uint64    // reviews.user_id
	ProductID uint64    // reviews.product_id
	Comment   *string   // reviews.comment (nullable)
	Grade     int       // reviews.grade
	IsActive  bool      // reviews.is_active
	CreatedAt time.Time // reviews.created_at
}
