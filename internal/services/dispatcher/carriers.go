package dispatcher

import (
	"strings"

	"github.com/BearBump/ParcelSync/internal/models"
)

type carrierRule struct {
	code     string
	patterns []string
}

// Matched in order against the upper-cased hint.
var carrierTable = []carrierRule{
	{code: models.CarrierUSPS, patterns: []string{"USPS", "UNITED STATES POSTAL", "U.S. POSTAL"}},
	{code: models.CarrierUPS, patterns: []string{"UPS", "UNITED PARCEL SERVICE"}},
	{code: models.CarrierFedEx, patterns: []string{"FEDEX", "FEDERAL EXPRESS"}},
	{code: models.CarrierDHL, patterns: []string{"DHL"}},
	{code: models.CarrierAmazon, patterns: []string{"AMAZON"}},
}

// CarrierCode maps a marketplace carrier label to a Parcel carrier code by
// case-insensitive substring match. Unknown or empty labels map to the
// placeholder code, which lets Parcel detect the carrier itself.
func CarrierCode(hint string) string {
	h := strings.ToUpper(strings.TrimSpace(hint))
	if h == "" {
		return models.CarrierPlaceholder
	}
	for _, r := range carrierTable {
		for _, p := range r.patterns {
			if strings.Contains(h, p) {
				return r.code
			}
		}
	}
	return models.CarrierPlaceholder
}
