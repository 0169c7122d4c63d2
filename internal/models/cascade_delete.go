package models

// BlockedEntity represents an entity that cannot be deleted due to references
type BlockedEntity struct {
	Type       string `json:"type"`   // "manufacturer"
	ID         string `json:"id"`     // Entity ID
	Name       string `json:"name"`   // Entity name for display
	Reason     string `json:"reason"` // Human-readable reason (e.g., "Referenced by 3 products")
	OtherCount int64  `json:"otherCount"`
}

// DeleteBlockedResponse is returned with 409 when a delete would orphan references
type DeleteBlockedResponse struct {
	Success bool          `json:"success"`
	Error   Error         `json:"error"`
	Blocked BlockedEntity `json:"blocked"`
}
