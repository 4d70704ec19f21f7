package models

import "time"

// Product represents a product offered by a seller
type Product struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Slug        string    `json:"slug" bson:"slug"`
	Price       float64   `json:"price" bson:"price"`
	Stock       int       `json:"stock" bson:"stock"`
	Description string    `json:"description" bson:"description"`
	Category    string    `json:"category" bson:"category"`
	SellerID    int       `json:"seller_id" bson:"seller_id"`
	Active      bool      `json:"active" bson:"active"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// ProductWithSeller is a product joined with its seller's public info
type ProductWithSeller struct {
	Product
	Seller *UserInfo `json:"seller,omitempty"`
}

// ProductRequest represents a create or update product request
type ProductRequest struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
}
