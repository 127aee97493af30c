package models

import (
	"encoding/json"
	"time"
)

// Canonical carrier codes understood by Parcel.
const (
	CarrierUSPS        = "usps"
	CarrierUPS         = "ups"
	CarrierFedEx       = "fedex"
	CarrierDHL         = "dhl"
	CarrierAmazon      = "amazon-logistics"
	CarrierPlaceholder = "pholder"
)

const DefaultDescription = "eBay Item"

// ShipmentCandidate is one trackable shipment extracted from an order, before filtering.
type ShipmentCandidate struct {
	OrderID        string
	TrackingNumber string
	CarrierHint    string
	Description    string
	// OrderAgeDays is nil when none of the order timestamps parse.
	OrderAgeDays      *int
	DeliveredAtSource bool
}

type HistoryRecord struct {
	TrackingNumber string    `json:"tracking_number"`
	AddedAt        time.Time `json:"added_at"`

	// rawAddedAt keeps an added_at value that did not parse so it is written back unchanged.
	rawAddedAt string
}

// Offset-less ISO-8601 layout; such values are read as UTC.
const localISOLayout = "2006-01-02T15:04:05.999999999"

type historyRecordJSON struct {
	TrackingNumber string `json:"tracking_number"`
	AddedAt        string `json:"added_at"`
}

// UnmarshalJSON accepts added_at as any ISO-8601 timestamp, with or without
// an offset. An unparsable value never fails the record.
func (r *HistoryRecord) UnmarshalJSON(b []byte) error {
	var aux historyRecordJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*r = HistoryRecord{TrackingNumber: aux.TrackingNumber}
	if aux.AddedAt == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, aux.AddedAt); err == nil {
		r.AddedAt = t
		return nil
	}
	if t, err := time.ParseInLocation(localISOLayout, aux.AddedAt, time.UTC); err == nil {
		r.AddedAt = t
		return nil
	}
	r.rawAddedAt = aux.AddedAt
	return nil
}

func (r HistoryRecord) MarshalJSON() ([]byte, error) {
	out := historyRecordJSON{TrackingNumber: r.TrackingNumber, AddedAt: r.rawAddedAt}
	if out.AddedAt == "" {
		out.AddedAt = r.AddedAt.Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// TrackingNumbers returns the set of tracking numbers present in records.
func TrackingNumbers(records []HistoryRecord) map[string]struct{} {
	out := make(map[string]struct{}, len(records))
	for _, r := range records {
		out[r.TrackingNumber] = struct{}{}
	}
	return out
}
