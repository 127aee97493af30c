package marketplace

import "context"

// Payload is a decoded GetOrders response. Values are nested Payload-like maps
// (map[string]any), []any for repeated elements, or strings.
type Payload map[string]any

type OrderSource interface {
	FetchOrders(ctx context.Context, daysBack int) (Payload, error)
}

type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}
