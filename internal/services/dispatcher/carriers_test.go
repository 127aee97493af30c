package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCarrierCode(t *testing.T) {
	cases := map[string]string{
		"USPS":                         "usps",
		"usps ground advantage":        "usps",
		"United States Postal Service": "usps",
		"UPS":                          "ups",
		"United Parcel Service":        "ups",
		"FedEx Home Delivery":          "fedex",
		"Federal Express":              "fedex",
		"DHL eCommerce":                "dhl",
		"Amazon Shipping":              "amazon-logistics",
		"Royal Mail":                   "pholder",
		"":                             "pholder",
		"   ":                          "pholder",
	}
	for hint, want := range cases {
		require.Equal(t, want, CarrierCode(hint), "hint %q", hint)
	}
}
