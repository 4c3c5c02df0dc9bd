// Package model holds the server-owned domain types the storefront reads
// and writes over the backend's JSON API.
package model

// Category groups products. Referenced by id from Product.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// Product is a catalog entry. The client never mutates products outside
// the admin screens; stock and price are authoritative on the server.
type Product struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	Category    *Category `json:"category,omitempty"`
	Image       string    `json:"image"`
	Sizes       []string  `json:"sizes,omitempty"`
	Size        string    `json:"size,omitempty"`
}

// Role is a selectable account role offered on the register screen.
type Role struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}
