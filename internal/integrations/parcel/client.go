// Package parcel registers deliveries with the Parcel app external API.
package parcel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ParcelSync/internal/integrations/delivery"
	"github.com/pkg/errors"
)

const (
	DefaultBaseURL  = "https://api.parcel.app"
	AddDeliveryPath = "/external/add-delivery/"
)

type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type addDeliveryReq struct {
	TrackingNumber       string `json:"tracking_number"`
	CarrierCode          string `json:"carrier_code"`
	Description          string `json:"description"`
	SendPushConfirmation bool   `json:"send_push_confirmation"`
}

type respBody struct {
	Success      *bool  `json:"success,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Register maps the add-delivery response onto a delivery outcome. A 400
// saying the number is already added counts as accepted so it lands in
// history and is not retried.
func (c *Client) Register(ctx context.Context, reg delivery.Registration) (delivery.Result, error) {
	body, err := json.Marshal(addDeliveryReq{
		TrackingNumber:       reg.TrackingNumber,
		CarrierCode:          reg.CarrierCode,
		Description:          reg.Description,
		SendPushConfirmation: true,
	})
	if err != nil {
		return delivery.Result{}, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+AddDeliveryPath, bytes.NewReader(body))
	if err != nil {
		return delivery.Result{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return delivery.Result{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return delivery.Result{}, errors.Wrap(err, "read body")
	}

	res := delivery.Result{
		StatusCode: resp.StatusCode,
		Message:    responseMessage(raw),
	}
	msg := strings.ToLower(res.Message)

	switch {
	case resp.StatusCode == http.StatusOK:
		res.Outcome = delivery.OutcomeAccepted
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(msg, "already added"):
		res.Outcome = delivery.OutcomeAccepted
		res.Duplicate = true
	case resp.StatusCode == http.StatusTooManyRequests:
		res.Outcome = delivery.OutcomeRateLimited
	default:
		// Unsupported carriers and every other failure are terminal for this run.
		res.Outcome = delivery.OutcomeRejected
	}
	return res, nil
}

func responseMessage(raw []byte) string {
	var rb respBody
	if err := json.Unmarshal(raw, &rb); err == nil {
		if rb.ErrorMessage != "" {
			return rb.ErrorMessage
		}
		if rb.Message != "" {
			return rb.Message
		}
	}
	return strings.TrimSpace(string(raw))
}
