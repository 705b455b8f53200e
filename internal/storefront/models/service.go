package models

type Service struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Price           float64 `json:"price"`
	Description     string  `json:"description"`
	EstablishmentID int64   `json:"establishment_id"`
}

// EnrichedService is a service joined with its establishment, the establishment's
// address and its owning provider. It is rebuilt from snapshots on every request
// and never persisted; any unresolved reference is nil.
type EnrichedService struct {
	Service
	Establishment *Establishment `json:"establishment"`
	Address       *Address       `json:"address"`
	Provider      *User          `json:"provider"`
}
