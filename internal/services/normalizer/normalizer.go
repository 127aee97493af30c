// Package normalizer flattens a GetOrders payload into shipment candidates.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/BearBump/ParcelSync/internal/integrations/marketplace"
	"github.com/BearBump/ParcelSync/internal/models"
)

const (
	maxDescriptionRunes = 30
	descriptionEllipsis = "..."
)

// Order timestamps in the order they are consulted for the order's age.
var orderTimeFields = []string{"ShippedTime", "PaidTime", "CreatedTime"}

// Normalize returns one candidate per tracking number found in payload, in
// payload order. A nil or empty payload, or one without orders, yields nothing.
func Normalize(payload marketplace.Payload, now time.Time) []models.ShipmentCandidate {
	out := []models.ShipmentCandidate{}
	if len(payload) == 0 {
		return out
	}
	for i, o := range list(get(payload, "OrderArray", "Order")) {
		out = append(out, fromOrder(o, i, now)...)
	}
	return out
}

func fromOrder(raw map[string]any, idx int, now time.Time) []models.ShipmentCandidate {
	o := newOrder(raw)
	details := o.trackingDetails()
	if len(details) == 0 {
		return nil
	}

	orderID := text(raw["OrderID"])
	if orderID == "" {
		orderID = fmt.Sprintf("#%d", idx)
	}
	age := orderAgeDays(raw, now)
	desc := o.description()

	out := make([]models.ShipmentCandidate, 0, len(details))
	for _, d := range details {
		num := text(d["ShipmentTrackingNumber"])
		if num == "" {
			continue
		}
		out = append(out, models.ShipmentCandidate{
			OrderID:           orderID,
			TrackingNumber:    num,
			CarrierHint:       firstText(d, "ShippingCarrierUsed", "ShippingCarrierCode"),
			Description:       desc,
			OrderAgeDays:      age,
			DeliveredAtSource: o.deliveredSomewhere(num, d),
		})
	}
	return out
}

type order struct {
	raw map[string]any
	// delivered holds tracking numbers that shipment-level records mark as delivered.
	delivered map[string]struct{}
}

func newOrder(raw map[string]any) *order {
	return &order{raw: raw, delivered: deliveredTrackingNumbers(raw)}
}

// trackingDetails prefers the order's own shipping details and falls back to
// the first transaction that carries any. Transactions are not merged.
func (o *order) trackingDetails() []map[string]any {
	if d := list(get(o.raw, "ShippingDetails", "ShipmentTrackingDetails")); len(d) > 0 {
		return d
	}
	for _, txn := range o.transactions() {
		if d := list(get(txn, "ShippingDetails", "ShipmentTrackingDetails")); len(d) > 0 {
			return d
		}
	}
	return nil
}

func (o *order) transactions() []map[string]any {
	return list(get(o.raw, "TransactionArray", "Transaction"))
}

func (o *order) description() string {
	title := ""
	if txns := o.transactions(); len(txns) > 0 {
		title = text(get(txns[0], "Item", "Title"))
	}
	if title == "" {
		title = models.DefaultDescription
	}
	return truncate(title)
}

// deliveredSomewhere answers whether any upstream signal says the shipment
// arrived: shipment-level status or date (collected per order up front), then
// the tracking detail's own status or date.
func (o *order) deliveredSomewhere(trackingNumber string, detail map[string]any) bool {
	if _, ok := o.delivered[trackingNumber]; ok {
		return true
	}
	return recordDelivered(detail)
}

func deliveredTrackingNumbers(raw map[string]any) map[string]struct{} {
	out := map[string]struct{}{}
	for _, sh := range list(get(raw, "ShipmentArray", "Shipment")) {
		shipmentDelivered := recordDelivered(sh)
		for _, d := range list(sh["ShipmentTrackingDetails"]) {
			num := text(d["ShipmentTrackingNumber"])
			if num == "" {
				continue
			}
			if shipmentDelivered || recordDelivered(d) {
				out[num] = struct{}{}
			}
		}
	}
	return out
}

// recordDelivered checks the status and delivery-date fields shared by
// shipments and tracking details.
func recordDelivered(m map[string]any) bool {
	if status := firstText(m, "DeliveryStatus", "Status"); strings.Contains(strings.ToLower(status), "delivered") {
		return true
	}
	return firstText(m, "ActualDeliveryDate", "DeliveryDate") != ""
}

func orderAgeDays(raw map[string]any, now time.Time) *int {
	for _, f := range orderTimeFields {
		ts, ok := parseTime(text(raw[f]))
		if !ok {
			continue
		}
		days := int(now.Sub(ts) / (24 * time.Hour))
		return &days
	}
	return nil
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	// Offset-less timestamps are taken as UTC.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func truncate(title string) string {
	r := []rune(title)
	if len(r) <= maxDescriptionRunes {
		return title
	}
	return string(r[:maxDescriptionRunes-len(descriptionEllipsis)]) + descriptionEllipsis
}
