// Package marketdata holds the global market snapshot as fetched from the
// upstream market-data providers, and the pure calculations derived from it.
package marketdata

import (
	"fmt"
	"math"
	"time"
)

// GlobalMetrics are the aggregate market figures of one fetch
type GlobalMetrics struct {
	TotalMarketCap         float64 `json:"total_market_cap"`
	TotalVolume24h         float64 `json:"total_volume_24h"`
	MarketCapChange24h     float64 `json:"market_cap_change_24h"`
	VolumeChange24h        float64 `json:"volume_change_24h"`
	BTCDominance           float64 `json:"btc_dominance"`
	ETHDominance           float64 `json:"eth_dominance"`
	ActiveCryptocurrencies int     `json:"active_cryptocurrencies"`
	ActiveExchanges        int     `json:"active_exchanges"`
	ActiveMarketPairs      int     `json:"active_market_pairs"`
	DefiVolume24h          float64 `json:"defi_volume_24h"`
	DefiMarketCap          float64 `json:"defi_market_cap"`
	StablecoinVolume24h    float64 `json:"stablecoin_volume_24h"`
	StablecoinMarketCap    float64 `json:"stablecoin_market_cap"`
	LastUpdated            string  `json:"last_updated"`
	APICreditsUsed         int     `json:"api_credits_used"`
}

// AltSeason describes where the market sits between bitcoin and altcoin season
type AltSeason struct {
	Index        int      `json:"alt_season_index"`
	Status       string   `json:"status"`
	Description  string   `json:"description"`
	Source       string   `json:"source"`
	BTCDominance *float64 `json:"btc_dominance"`
	ETHDominance *float64 `json:"eth_dominance"`
	AltDominance *float64 `json:"alt_dominance"`
	UpdatedAt    string   `json:"updated_at,omitempty"`
}

// FearGreed is the sentiment index reading
type FearGreed struct {
	Value               int    `json:"value"`
	ValueClassification string `json:"value_classification"`
	Timestamp           string `json:"timestamp"`
	TimeUntilUpdate     string `json:"time_until_update"`
	Source              string `json:"source"`
}

// Snapshot is one complete upstream computation. It is the payload the
// snapshot cache stores.
type Snapshot struct {
	GlobalMetrics       GlobalMetrics `json:"global_metrics"`
	AltSeason           AltSeason     `json:"alt_season"`
	FearGreed           *FearGreed    `json:"fear_greed"`
	FetchedAt           string        `json:"fetched_at"`
	Source              string        `json:"source"`
	TotalAPICreditsUsed int           `json:"total_api_credits_used"`
}

// Alt-season statuses
const (
	StatusBTCSeason = "btc_season"
	StatusAltSeason = "alt_season"
	StatusNeutral   = "neutral"
)

// CalculateAltSeason derives the alt-season index from BTC dominance
func CalculateAltSeason(btcDominance, ethDominance float64, now time.Time) AltSeason {
	var season AltSeason

	switch {
	case btcDominance >= 70:
		season.Index = max(0, int((100-btcDominance)*2))
		season.Status = StatusBTCSeason
		season.Description = fmt.Sprintf("Bitcoin season! BTC dominance: %.1f%%", btcDominance)
	case btcDominance <= 40:
		season.Index = min(100, int(100-btcDominance+10))
		season.Status = StatusAltSeason
		season.Description = fmt.Sprintf("Alt season! BTC dominance dropped to %.1f%%", btcDominance)
	default:
		normalized := (btcDominance - 40) / 30
		season.Index = int(75 - normalized*50)
		season.Status = StatusNeutral
		season.Description = fmt.Sprintf("Mixed market. BTC: %.1f%%, ETH: %.1f%%", btcDominance, ethDominance)
	}

	btc := Round2(btcDominance)
	eth := Round2(ethDominance)
	alt := Round2(100 - btcDominance - ethDominance)
	season.Source = "coinmarketcap_calculation"
	season.BTCDominance = &btc
	season.ETHDominance = &eth
	season.AltDominance = &alt
	season.UpdatedAt = now.UTC().Format(time.RFC3339)
	return season
}

// ClassifyFearGreed maps an index value to its label
func ClassifyFearGreed(value int) string {
	switch {
	case value >= 75:
		return "Extreme Greed"
	case value >= 55:
		return "Greed"
	case value >= 45:
		return "Neutral"
	case value >= 25:
		return "Fear"
	default:
		return "Extreme Fear"
	}
}

// Share returns part as a percentage of total rounded to 2 places, or nil
// when either side is not positive
func Share(part, total float64) *float64 {
	if part <= 0 || total <= 0 {
		return nil
	}
	v := Round2(part / total * 100)
	return &v
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
