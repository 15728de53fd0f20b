package models

// ShippingAddress is attached to exactly one order. Required fields carry
// validate tags so callers can reject incomplete input before any network
// call is made.
type ShippingAddress struct {
	FullName    string `json:"full_name" validate:"required"`
	Street1     string `json:"street1" validate:"required"`
	Street2     string `json:"street2,omitempty"`
	City        string `json:"city" validate:"required"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postal_code" validate:"required"`
	CountryCode string `json:"country_code" validate:"required,iso3166_1_alpha2"`
	Phone       string `json:"phone,omitempty"`
}
