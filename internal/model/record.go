package model

import "encoding/json"

// ExternalRecord is a business entry as served by the directory API.
// Every field is optional; the upstream payload is frequently partial.
type ExternalRecord struct {
	PublicID           *string             `json:"publicId,omitempty"`
	ID                 *int64              `json:"id,omitempty"`
	Name               *string             `json:"name,omitempty"`
	DisplayName        *string             `json:"displayName,omitempty"`
	NameOnly           *LocalizedName      `json:"nameOnly,omitempty"`
	Branch             *LocalizedName      `json:"branch,omitempty"`
	Categories         []RecordCategory    `json:"categories,omitempty"`
	PriceRange         *PriceRange         `json:"priceRange,omitempty"`
	Rating             *float64            `json:"rating,omitempty"`
	Statistic          *Statistic          `json:"statistic,omitempty"`
	Lat                *float64            `json:"lat,omitempty"`
	Lng                *float64            `json:"lng,omitempty"`
	Contact            *Contact            `json:"contact,omitempty"`
	WorkingHours       json.RawMessage     `json:"workingHours,omitempty"`
	WorkingHoursStatus *WorkingHoursStatus `json:"workingHoursStatus,omitempty"`
	DefaultPhoto       *Photo              `json:"defaultPhoto,omitempty"`
	MainPhoto          *Photo              `json:"mainPhoto,omitempty"`
	Photos             *PhotoPage          `json:"photos,omitempty"`
	Menu               *Menu               `json:"menu,omitempty"`
	VerifiedInfo       *bool               `json:"verifiedInfo,omitempty"`
	VerifiedLocation   *bool               `json:"verifiedLocation,omitempty"`
	Delivery           *ServiceOption      `json:"delivery,omitempty"`
	Pickup             *ServiceOption      `json:"pickup,omitempty"`
}

// LocalizedName carries the primary name and its Thai/English variants.
type LocalizedName struct {
	Primary *string `json:"primary,omitempty"`
	Thai    *string `json:"thai,omitempty"`
	English *string `json:"english,omitempty"`
}

// RecordCategory is one entry in the record's category list.
type RecordCategory struct {
	ID                *int64  `json:"id,omitempty"`
	Name              *string `json:"name,omitempty"`
	InternationalName *string `json:"internationalName,omitempty"`
}

// PriceRange is the ordinal price tier (1 = cheapest).
type PriceRange struct {
	Name  *string `json:"name,omitempty"`
	Value *int    `json:"value,omitempty"`
}

// Statistic holds review aggregates.
type Statistic struct {
	NumberOfReviews *int     `json:"numberOfReviews,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
}

// Contact holds the address block and contact channels.
type Contact struct {
	Address  *Address `json:"address,omitempty"`
	PhoneNo  *string  `json:"phoneno,omitempty"`
	Homepage *string  `json:"homepage,omitempty"`
}

// Address is the nested location hierarchy.
type Address struct {
	Street      *string `json:"street,omitempty"`
	Hint        *string `json:"hint,omitempty"`
	SubDistrict *Named  `json:"subDistrict,omitempty"`
	District    *Named  `json:"district,omitempty"`
	City        *Named  `json:"city,omitempty"`
	PostalCode  *string `json:"postalCode,omitempty"`
}

// Named is a {"name": ...} wrapper used by the address hierarchy.
type Named struct {
	ID   *int64  `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

// WorkingHoursStatus reports whether the venue is currently open.
type WorkingHoursStatus struct {
	Open    *bool   `json:"open,omitempty"`
	Message *string `json:"message,omitempty"`
}

// Photo is a single photo reference.
type Photo struct {
	SmallURL *string `json:"smallUrl,omitempty"`
	LargeURL *string `json:"largeUrl,omitempty"`
}

// PhotoPage is the paginated photo list attached to a record.
type PhotoPage struct {
	Entities []Photo `json:"entities,omitempty"`
}

// Menu lists notable items for the venue.
type Menu struct {
	Items []MenuItem `json:"items,omitempty"`
}

// MenuItem is a single menu hint.
type MenuItem struct {
	Name *string `json:"name,omitempty"`
}

// ServiceOption flags an optional service such as delivery or pickup.
type ServiceOption struct {
	Available *bool `json:"available,omitempty"`
}
