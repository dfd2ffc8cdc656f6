package treasury

import (
	"encoding/json"
	"fmt"
	"strings"

	"gateway-dashboard/src/interfaces"
)

// PriceSource reads a simple-price style API:
// GET {url}?ids=<asset>&vs_currencies=<fiat> -> {"<asset>":{"<fiat>":1234.5}}
type PriceSource struct {
	Network  interfaces.INetworkManager
	URL      string
	AssetID  string
	Currency string
}

// -----------------------------------------------------------------------------

func NewPriceSource(nm interfaces.INetworkManager, url, assetID, currency string) *PriceSource {
	return &PriceSource{
		Network:  nm,
		URL:      url,
		AssetID:  strings.ToLower(assetID),
		Currency: strings.ToLower(currency),
	}
}

// -----------------------------------------------------------------------------

// Spot returns the current price of one native unit in fiat.
func (p *PriceSource) Spot() (float64, error) {
	if p.URL == "" {
		return 0, fmt.Errorf("no price url configured")
	}

	body, err := p.Network.Get(p.URL, map[string]string{
		"ids":           p.AssetID,
		"vs_currencies": p.Currency,
	})
	if err != nil {
		return 0, err
	}

	var quotes map[string]map[string]float64
	if err := json.Unmarshal(body, &quotes); err != nil {
		return 0, fmt.Errorf("decode price: %w", err)
	}

	price, ok := quotes[p.AssetID][p.Currency]
	if !ok {
		return 0, fmt.Errorf("no %s price for %s in response", p.Currency, p.AssetID)
	}
	return price, nil
}
