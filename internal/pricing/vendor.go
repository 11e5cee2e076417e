package pricing

import (
	"math"
	"sort"
	"strconv"
	"unicode/utf16"

	"github.com/Simplici0/glassquote/internal/domain"
)

// VendorVariation is the maximum relative deviation of a vendor price.
const VendorVariation = 0.02

// DefaultVendors is the comparison vendor list used when none is configured.
var DefaultVendors = []string{
	"AutoGlass Direct",
	"ClearView Windscreens",
	"National Glass Co",
	"ScreenFix UK",
	"Windscreen Express",
}

// VendorPrice is one comparison price. Rank starts at 1 for the cheapest.
type VendorPrice struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
	Rank  int    `json:"rank"`
}

// VendorSeed builds the seed string for a final price, registration and
// selection. The selection is written in priority order so toggling order
// does not change the result.
func VendorSeed(finalPrice int, registration string, sel domain.Selection) string {
	return strconv.Itoa(finalPrice) + domain.NormalizeRegistration(registration) + sel.Key()
}

// VendorPrices derives one price per vendor from finalPrice, sorted
// ascending. The first entry is the default selection.
func VendorPrices(finalPrice int, seed string, vendors []string) []VendorPrice {
	prices := make([]VendorPrice, len(vendors))
	for i, name := range vendors {
		h := int64(seedHash(seed + strconv.Itoa(i)))
		if h < 0 {
			h = -h
		}
		normalized := float64(h) / (1 << 31)
		variation := normalized*2*VendorVariation - VendorVariation
		prices[i] = VendorPrice{
			Name:  name,
			Price: int(math.Round(float64(finalPrice) * (1 + variation))),
		}
	}

	sort.SliceStable(prices, func(i, j int) bool { return prices[i].Price < prices[j].Price })
	for i := range prices {
		prices[i].Rank = i + 1
	}
	return prices
}

// seedHash is the 32-bit polynomial hash h = h*31 + c over UTF-16 code
// units, wrapping on overflow.
func seedHash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	return h
}
