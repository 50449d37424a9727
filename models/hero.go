package models

// Hero is one entry of the pick/ban pool, served by the external hero
// catalog API. Consumed read-only.
type Hero struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}
