// Package ebay fetches buyer orders from the eBay Trading API.
package ebay

import (
	"bytes"
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/ParcelSync/internal/integrations/marketplace"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	DefaultTradingURL = "https://api.ebay.com/ws/api.dll"

	compatibilityLevel = "1193"
	siteIDUS           = "0"
	entriesPerPage     = 100
	maxPages           = 20
	apiTimeLayout      = "2006-01-02T15:04:05.000Z"
)

type Credentials struct {
	AppID        string
	DevID        string
	ClientSecret string
}

type Client struct {
	baseURL string
	creds   Credentials
	tokens  marketplace.TokenProvider
	httpc   *http.Client
	log     *zap.Logger
	now     func() time.Time
}

func New(baseURL string, creds Credentials, tokens marketplace.TokenProvider, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultTradingURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		creds:   creds,
		tokens:  tokens,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
		now: func() time.Time { return time.Now().UTC() },
	}
}

type pagination struct {
	EntriesPerPage int `xml:"EntriesPerPage"`
	PageNumber     int `xml:"PageNumber"`
}

type getOrdersRequest struct {
	XMLName        xml.Name   `xml:"urn:ebay:apis:eBLBaseComponents GetOrdersRequest"`
	CreateTimeFrom string     `xml:"CreateTimeFrom"`
	CreateTimeTo   string     `xml:"CreateTimeTo"`
	OrderRole      string     `xml:"OrderRole"`
	DetailLevel    string     `xml:"DetailLevel"`
	Pagination     pagination `xml:"Pagination"`
}

// FetchOrders returns the orders created in the last daysBack days where the
// account is the buyer. Pages are merged into a single OrderArray. A
// non-Success Ack is logged and the payload is still returned; a failure on a
// later page keeps the pages already read.
func (c *Client) FetchOrders(ctx context.Context, daysBack int) (marketplace.Payload, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "ebay token")
	}

	end := c.now()
	start := end.AddDate(0, 0, -daysBack)

	var first marketplace.Payload
	var orders []any
	for page := 1; page <= maxPages; page++ {
		p, err := c.getOrdersPage(ctx, token, start, end, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			c.log.Warn("GetOrders page failed, keeping earlier pages", zap.Int("page", page), zap.Error(err))
			break
		}
		if ack := scalar(p["Ack"]); ack != "Success" {
			c.log.Warn("GetOrders returned non-success ack", zap.String("ack", ack), zap.Any("errors", p["Errors"]))
		}
		if first == nil {
			first = p
		}
		orders = append(orders, orderNodes(p)...)
		if !strings.EqualFold(scalar(p["HasMoreOrders"]), "true") {
			break
		}
	}

	if len(orders) > 0 {
		first["OrderArray"] = map[string]any{"Order": orders}
	}
	c.log.Info("GetOrders retrieved orders", zap.Int("orders", len(orders)), zap.Int("days_back", daysBack))
	return first, nil
}

func (c *Client) getOrdersPage(ctx context.Context, token string, start, end time.Time, page int) (marketplace.Payload, error) {
	body, err := xml.Marshal(getOrdersRequest{
		CreateTimeFrom: start.UTC().Format(apiTimeLayout),
		CreateTimeTo:   end.UTC().Format(apiTimeLayout),
		OrderRole:      "Buyer",
		DetailLevel:    "ReturnAll",
		Pagination:     pagination{EntriesPerPage: entriesPerPage, PageNumber: page},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("X-EBAY-API-CALL-NAME", "GetOrders")
	req.Header.Set("X-EBAY-API-SITEID", siteIDUS)
	req.Header.Set("X-EBAY-API-COMPATIBILITY-LEVEL", compatibilityLevel)
	req.Header.Set("X-EBAY-API-IAF-TOKEN", token)
	req.Header.Set("X-EBAY-API-APP-NAME", c.creds.AppID)
	req.Header.Set("X-EBAY-API-DEV-NAME", c.creds.DevID)
	req.Header.Set("X-EBAY-API-CERT-NAME", c.creds.ClientSecret)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, errors.Errorf("ebay trading api http %d", resp.StatusCode)
	}

	p, err := decodeTree(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}
	return p, nil
}

func orderNodes(p marketplace.Payload) []any {
	oa, ok := p["OrderArray"].(map[string]any)
	if !ok {
		return nil
	}
	switch v := oa["Order"].(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		s, _ := t["value"].(string)
		return s
	default:
		return ""
	}
}
