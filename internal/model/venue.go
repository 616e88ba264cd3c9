package model

import "time"

// CategoryUnspecified is stored when a record carries no categories.
const CategoryUnspecified = "Unspecified"

// Venue is the canonical, flattened row persisted for each directory record.
type Venue struct {
	ID                string    `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	NameTH            string    `json:"name_th,omitempty" yaml:"name_th,omitempty"`
	NameEN            string    `json:"name_en,omitempty" yaml:"name_en,omitempty"`
	Branch            string    `json:"branch,omitempty" yaml:"branch,omitempty"`
	Category          string    `json:"category" yaml:"category"`
	PriceTier         int       `json:"price_tier" yaml:"price_tier"`
	Rating            float64   `json:"rating" yaml:"rating"`
	ReviewCount       int       `json:"review_count" yaml:"review_count"`
	Latitude          *float64  `json:"latitude" yaml:"latitude"`
	Longitude         *float64  `json:"longitude" yaml:"longitude"`
	Address           string    `json:"address" yaml:"address"`
	Phone             string    `json:"phone" yaml:"phone"`
	Website           string    `json:"website" yaml:"website"`
	OpeningHours      string    `json:"opening_hours,omitempty" yaml:"opening_hours,omitempty"` // serialized, opaque
	IsOpen            bool      `json:"is_open" yaml:"is_open"`
	Photos            []string  `json:"photos" yaml:"photos"`
	MenuItems         []string  `json:"menu_items" yaml:"menu_items"`
	District          string    `json:"district" yaml:"district"`
	City              string    `json:"city" yaml:"city"`
	PostalCode        string    `json:"postal_code" yaml:"postal_code"`
	VerifiedInfo      bool      `json:"verified_info" yaml:"verified_info"`
	VerifiedLocation  bool      `json:"verified_location" yaml:"verified_location"`
	DeliveryAvailable bool      `json:"delivery_available" yaml:"delivery_available"`
	PickupAvailable   bool      `json:"pickup_available" yaml:"pickup_available"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// VenueFilter holds the composable predicates for querying venues.
// Zero values mean "no filter"; Limit 0 returns every match.
type VenueFilter struct {
	City              string   `json:"city,omitempty"`
	Category          string   `json:"category,omitempty"`
	MinRating         *float64 `json:"min_rating,omitempty"`
	PriceTier         *int     `json:"price_tier,omitempty"`
	DeliveryAvailable *bool    `json:"delivery_available,omitempty"`
	Limit             int      `json:"limit,omitempty"`
}

// VenueStats is the aggregate view over all stored venues.
type VenueStats struct {
	Total         int     `json:"total" yaml:"total"`
	Cities        int     `json:"cities" yaml:"cities"`
	Categories    int     `json:"categories" yaml:"categories"`
	AvgRating     float64 `json:"avg_rating" yaml:"avg_rating"`
	DeliveryCount int     `json:"delivery_count" yaml:"delivery_count"`
	PickupCount   int     `json:"pickup_count" yaml:"pickup_count"`
}
