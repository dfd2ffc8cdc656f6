package treasury

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gateway-dashboard/src/interfaces"
	"gateway-dashboard/src/models"
)

// Explorer reads address history from a Blockscout-style v2 API.
type Explorer struct {
	Network        interfaces.INetworkManager
	BaseURL        string
	NativeSymbol   string
	NativeDecimals int
	// TokenDecimals applies to transfers that do not report their own.
	TokenDecimals int
}

type explorerAddress struct {
	Hash string `json:"hash"`
}

type explorerTx struct {
	Hash      string           `json:"hash"`
	From      *explorerAddress `json:"from"`
	To        *explorerAddress `json:"to"`
	Value     string           `json:"value"`
	Timestamp string           `json:"timestamp"`
}

type explorerTokenTransfer struct {
	TransactionHash string           `json:"transaction_hash"`
	TxHash          string           `json:"tx_hash"`
	From            *explorerAddress `json:"from"`
	To              *explorerAddress `json:"to"`
	Timestamp       string           `json:"timestamp"`
	Total           struct {
		Value    string      `json:"value"`
		Decimals json.Number `json:"decimals"`
	} `json:"total"`
	Token struct {
		Symbol   string      `json:"symbol"`
		Decimals json.Number `json:"decimals"`
	} `json:"token"`
}

type explorerPage[T any] struct {
	Items []T `json:"items"`
}

// -----------------------------------------------------------------------------

func NewExplorer(nm interfaces.INetworkManager, baseURL, nativeSymbol string, nativeDecimals, tokenDecimals int) *Explorer {
	return &Explorer{
		Network:        nm,
		BaseURL:        strings.TrimRight(baseURL, "/"),
		NativeSymbol:   nativeSymbol,
		NativeDecimals: nativeDecimals,
		TokenDecimals:  tokenDecimals,
	}
}

// -----------------------------------------------------------------------------

// NativeTransfers returns the address's native transfers, normalized.
func (e *Explorer) NativeTransfers(address string) ([]models.MTransfer, error) {
	var page explorerPage[explorerTx]
	if err := e.fetch(address, "transactions", &page); err != nil {
		return nil, err
	}

	out := make([]models.MTransfer, 0, len(page.Items))
	for _, item := range page.Items {
		value, err := DecimalToUnits(item.Value, e.NativeDecimals)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", item.Hash, err)
		}
		out = append(out, normalize(address, item.Hash, item.From, item.To, value, e.NativeSymbol, item.Timestamp))
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// TokenTransfers returns the address's token transfers, normalized.
func (e *Explorer) TokenTransfers(address string) ([]models.MTransfer, error) {
	var page explorerPage[explorerTokenTransfer]
	if err := e.fetch(address, "token-transfers", &page); err != nil {
		return nil, err
	}

	out := make([]models.MTransfer, 0, len(page.Items))
	for _, item := range page.Items {
		hash := item.TransactionHash
		if hash == "" {
			hash = item.TxHash
		}

		value, err := DecimalToUnits(item.Total.Value, e.transferDecimals(item))
		if err != nil {
			return nil, fmt.Errorf("token transfer %s: %w", hash, err)
		}
		out = append(out, normalize(address, hash, item.From, item.To, value, item.Token.Symbol, item.Timestamp))
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// transferDecimals prefers the transfer's own decimals, then the token's, then
// the configured token decimals.
func (e *Explorer) transferDecimals(item explorerTokenTransfer) int {
	for _, n := range []json.Number{item.Total.Decimals, item.Token.Decimals} {
		if d, err := strconv.Atoi(n.String()); err == nil && d >= 0 {
			return d
		}
	}
	return e.TokenDecimals
}

// -----------------------------------------------------------------------------

func (e *Explorer) fetch(address, resource string, v interface{}) error {
	if e.BaseURL == "" {
		return fmt.Errorf("no explorer url configured")
	}

	endpoint := fmt.Sprintf("%s/addresses/%s/%s", e.BaseURL, url.PathEscape(address), resource)
	body, err := e.Network.Get(endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", resource, err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: decode: %w", resource, err)
	}
	return nil
}

// -----------------------------------------------------------------------------

// normalize builds a transfer whose direction is relative to address.
func normalize(address, hash string, from, to *explorerAddress, value float64, symbol, timestamp string) models.MTransfer {
	t := models.MTransfer{
		Hash:      hash,
		Value:     value,
		Symbol:    symbol,
		Direction: models.DirectionIn,
	}
	if from != nil {
		t.From = from.Hash
	}
	if to != nil {
		t.To = to.Hash
	}
	if strings.EqualFold(t.From, address) {
		t.Direction = models.DirectionOut
	}
	if ts, err := time.Parse(time.RFC3339, timestamp); err == nil {
		t.Timestamp = ts.Unix()
	}
	return t
}
