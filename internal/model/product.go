package model

import "time"

// Product mirrors the `products` table. A product belongs to exactly one
// seller and one category. The Rating column is derived state: it always
// equals the average grade of the product's active reviews (0 when there
// are none) and is rewritten by the review repositories whenever that set
// changes. It must never be updated from request input directly.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name, up to 100 characters.
//  Description – optional long description.
//  Price       – unit price with two decimal places.
//  ImageURL    – optional image location.
//  Stock       – units available.
//  Rating      – derived average grade over active reviews.
//  CategoryID  – owning category.
//  SellerID    – owning seller account.
//  IsActive    – soft-delete marker, forced false when the seller is
//                deactivated.
type Product struct {
	ID          uint64    // products.id
	Name        string    // products.name
	Description *string   // products.description (nullable)
	Price       float64   // products.price
	ImageURL    *string   // products.image_url (nullable)
	Stock       uint32    // products.stock
	Rating      float64   // products.rating
	CategoryID  uint64    // products.category_id
	SellerID    uint64    // products.seller_id
	IsActive    bool      // products.is_active
	CreatedAt   time.Time // products.created_at
	UpdatedAt   time.Time // products.updated_at
}
