package model

import "time"

// Product represents an item in the shop catalogue.
// Prices are integer minor units (cents) of the shop currency.
type Product struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	PriceCents int64     `json:"priceCents" db:"price_cents"`
	Category   string    `json:"category" db:"category"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// ProductFilter narrows a catalogue listing. An empty Category matches
// every product; categories compare case-insensitively.
type ProductFilter struct {
	Category string
	Limit    int
	Offset   int
}

// ProductPage is one page of a catalogue listing.
type ProductPage struct {
	Products []Product `json:"products"`
	Category string    `json:"category,omitempty"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}

// ProductCategory is a shop category and how many products it holds.
type ProductCategory struct {
	Name  string `json:"name" db:"category"`
	Count int    `json:"count" db:"product_count"`
}
