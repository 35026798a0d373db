package models

import "time"

// Recipe is a catalog entry owned by exactly one seller.
type Recipe struct {
	ID            string    `json:"id"`
	SellerID      string    `json:"seller_id"`
	Seller        string    `json:"seller"` // owner's username
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Image         string    `json:"image"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	AverageRating *float64  `json:"average_rating"`
}

// OwnerID returns the seller that owns the recipe.
func (r Recipe) OwnerID() string { return r.SellerID }

// RecipeInput carries client-supplied recipe fields. Nil pointers mean
// "not provided", which matters for partial updates.
type RecipeInput struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Image       *string `json:"image" validate:"omitempty,max=512"`
}
