package clients

import (
	"github.com/hirokisan/bybit/v2"
)

// NewBybitClient creates a Bybit API client. The scanner only touches public
// market endpoints, so credentials are optional.
func NewBybitClient(apiKey, apiSecret string) *bybit.Client {
	client := bybit.NewClient()
	if apiKey != "" && apiSecret != "" {
		client = client.WithAuth(apiKey, apiSecret)
	}

	return client
}
