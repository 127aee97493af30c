package eligibility

import "github.com/BearBump/ParcelSync/internal/models"

const DefaultMaxAgeDays = 45

type Result struct {
	Eligible         []models.ShipmentCandidate
	DeliveredSkipped int
	AgedSkipped      int
}

// Filter drops candidates whose order is older than maxAgeDays, then those
// already delivered. Each candidate carries its own order's age, so every
// candidate of a stale order is aged out without looking at its delivery
// status. An order with no usable timestamp is never aged out. A non-positive
// maxAgeDays falls back to DefaultMaxAgeDays.
func Filter(candidates []models.ShipmentCandidate, maxAgeDays int) Result {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}

	res := Result{Eligible: make([]models.ShipmentCandidate, 0, len(candidates))}
	for _, c := range candidates {
		switch {
		case c.OrderAgeDays != nil && *c.OrderAgeDays > maxAgeDays:
			res.AgedSkipped++
		case c.DeliveredAtSource:
			res.DeliveredSkipped++
		default:
			res.Eligible = append(res.Eligible, c)
		}
	}
	return res
}
