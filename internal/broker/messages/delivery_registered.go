package messages

import "time"

// DeliveryRegistered is published once per tracking number accepted downstream.
type DeliveryRegistered struct {
	RunID          string    `json:"run_id"`
	Account        string    `json:"account"`
	TrackingNumber string    `json:"tracking_number"`
	CarrierCode    string    `json:"carrier_code"`
	Description    string    `json:"description"`
	OrderID        string    `json:"order_id,omitempty"`
	// Duplicate is set when the sink already had the tracking number.
	Duplicate    bool      `json:"duplicate,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}
