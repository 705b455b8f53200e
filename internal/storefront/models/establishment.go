package models

type Establishment struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TaxID      string `json:"tax_id"`
	ProviderID int64  `json:"provider_id"` // owning provider (User)
	AddressID  int64  `json:"address_id"`
}

type Address struct {
	ID         int64   `json:"id"`
	Street     string  `json:"street"`
	Number     string  `json:"number"`
	District   string  `json:"district"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Complement *string `json:"complement,omitempty"`
}
