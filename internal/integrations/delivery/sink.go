package delivery

import "context"

type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejected
	OutcomeRateLimited
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

type Registration struct {
	TrackingNumber string
	CarrierCode    string
	Description    string
}

type Result struct {
	Outcome Outcome
	// Duplicate marks an accepted result where the sink already knew the tracking number.
	Duplicate  bool
	StatusCode int
	Message    string
}

// Sink registers deliveries downstream. A non-nil error means the call failed
// at the transport layer and no Result is available.
type Sink interface {
	Register(ctx context.Context, reg Registration) (Result, error)
}
