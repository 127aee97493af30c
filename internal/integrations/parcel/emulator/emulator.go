// Package emulator serves a local stand-in for the Parcel add-delivery API.
package emulator

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Delivery struct {
	TrackingNumber string    `json:"tracking_number"`
	CarrierCode    string    `json:"carrier_code"`
	Description    string    `json:"description"`
	AddedAt        time.Time `json:"added_at"`
}

type Server struct {
	apiKey string

	mu          sync.Mutex
	deliveries  []Delivery
	known       map[string]struct{}
	unsupported map[string]struct{}
	// 0 disables the limit.
	limitAfter int
	calls      int
}

func New(apiKey string) *Server {
	return &Server{
		apiKey:      apiKey,
		known:       map[string]struct{}{},
		unsupported: map[string]struct{}{},
	}
}

func (s *Server) WithUnsupportedCarriers(codes ...string) *Server {
	for _, c := range codes {
		s.unsupported[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return s
}

// WithRateLimitAfter answers 429 to every add-delivery call after the first n.
func (s *Server) WithRateLimitAfter(n int) *Server {
	if n > 0 {
		s.limitAfter = n
	}
	return s
}

// Seed marks tracking numbers as already present.
func (s *Server) Seed(numbers ...string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range numbers {
		s.known[n] = struct{}{}
	}
	return s
}

func (s *Server) Registered() []Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Delivery, len(s.deliveries))
	copy(out, s.deliveries)
	return out
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/external/add-delivery/", s.addDelivery)
	r.Get("/external/deliveries/", func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, errBody("Invalid API key"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "deliveries": s.Registered()})
	})
	return r
}

type addDeliveryReq struct {
	TrackingNumber string `json:"tracking_number"`
	CarrierCode    string `json:"carrier_code"`
	Description    string `json:"description"`
}

func (s *Server) addDelivery(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errBody("Invalid API key"))
		return
	}

	var req addDeliveryReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errBody("Invalid JSON body"))
		return
	}
	req.TrackingNumber = strings.TrimSpace(req.TrackingNumber)
	if req.TrackingNumber == "" || req.CarrierCode == "" {
		writeJSON(w, http.StatusBadRequest, errBody("tracking_number and carrier_code are required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.limitAfter > 0 && s.calls > s.limitAfter {
		writeJSON(w, http.StatusTooManyRequests, errBody("Too many requests, try again later"))
		return
	}
	if _, ok := s.unsupported[strings.ToLower(req.CarrierCode)]; ok {
		writeJSON(w, http.StatusBadRequest, errBody("Unsupported carrier"))
		return
	}
	if _, ok := s.known[req.TrackingNumber]; ok {
		writeJSON(w, http.StatusBadRequest, errBody("This delivery was already added"))
		return
	}

	s.known[req.TrackingNumber] = struct{}{}
	s.deliveries = append(s.deliveries, Delivery{
		TrackingNumber: req.TrackingNumber,
		CarrierCode:    req.CarrierCode,
		Description:    req.Description,
		AddedAt:        time.Now().UTC(),
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) authorized(r *http.Request) bool {
	return s.apiKey == "" || r.Header.Get("api-key") == s.apiKey
}

func errBody(msg string) map[string]any {
	return map[string]any{"success": false, "error_message": msg}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
