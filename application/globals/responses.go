package globals

import "liberandum-backend/domain/marketdata"

// Data sources reported on GlobalMarketResponse
const (
	SourceCached   = "coinmarketcap_cached"
	SourceComplete = "coinmarketcap_complete"
	SourceFallback = "fallback"
)

type MarketCapData struct {
	TotalMarketCapUSD         float64  `json:"total_market_cap_usd"`
	TotalVolumeUSD            float64  `json:"total_volume_usd"`
	MarketCapChange24hPercent float64  `json:"market_cap_change_24h_percent"`
	BTCDominance              float64  `json:"btc_dominance"`
	ETHDominance              float64  `json:"eth_dominance"`
	ActiveCryptocurrencies    *int     `json:"active_cryptocurrencies"`
	Markets                   *int     `json:"markets"`
	DefiDominance             *float64 `json:"defi_dominance"`
	StablecoinDominance       *float64 `json:"stablecoin_dominance"`
}

type FearGreedIndex struct {
	Value               int     `json:"value"`
	ValueClassification string  `json:"value_classification"`
	Timestamp           string  `json:"timestamp"`
	TimeUntilUpdate     *string `json:"time_until_update"`
	Trend7d             *string `json:"trend_7d"`
	PreviousValue       *int    `json:"previous_value"`
}

type DominanceChanges struct {
	BTCDominance    float64 `json:"btc_dominance"`
	BTCChange24h    float64 `json:"btc_change_24h"`
	ETHDominance    float64 `json:"eth_dominance"`
	ETHChange24h    float64 `json:"eth_change_24h"`
	OthersDominance float64 `json:"others_dominance"`
	OthersChange24h float64 `json:"others_change_24h"`
}

// GlobalMarketResponse is the public view of a snapshot
type GlobalMarketResponse struct {
	MarketCap         MarketCapData        `json:"market_cap"`
	FearGreedIndex    FearGreedIndex       `json:"fear_greed_index"`
	AltSeason         marketdata.AltSeason `json:"alt_season"`
	DominanceChanges  *DominanceChanges    `json:"dominance_changes"`
	LastUpdated       string               `json:"last_updated"`
	DataSource        string               `json:"data_source"`
	APICallsRemaining *int                 `json:"api_calls_remaining"`
	NextUpdateIn      string               `json:"next_update_in"`
}

type DominanceResponse struct {
	BTCDominance        float64  `json:"btc_dominance"`
	ETHDominance        float64  `json:"eth_dominance"`
	OthersDominance     float64  `json:"others_dominance"`
	DefiDominance       *float64 `json:"defi_dominance"`
	StablecoinDominance *float64 `json:"stablecoin_dominance"`
	LastUpdated         string   `json:"last_updated"`
	DataSource          string   `json:"data_source"`
}

type AltSeasonResponse struct {
	Index        int      `json:"alt_season_index"`
	Status       string   `json:"status"`
	Description  string   `json:"description"`
	BTCDominance *float64 `json:"btc_dominance"`
	ETHDominance *float64 `json:"eth_dominance"`
	AltDominance *float64 `json:"alt_dominance"`
	Source       string   `json:"source"`
	LastUpdated  string   `json:"last_updated"`
	DataSource   string   `json:"data_source"`
}

type FearGreedResponse struct {
	Value               int     `json:"value"`
	ValueClassification string  `json:"value_classification"`
	Timestamp           string  `json:"timestamp"`
	TimeUntilUpdate     *string `json:"time_until_update"`
	LastUpdated         string  `json:"last_updated"`
	DataSource          string  `json:"data_source"`
}

type CacheInfoResponse struct {
	CacheInfo     CacheInfo `json:"cache_info"`
	CacheTTLHours float64   `json:"cache_ttl_hours"`
	Description   string    `json:"description"`
}

type ClearCacheResponse struct {
	Message     string `json:"message"`
	NextRequest string `json:"next_request,omitempty"`
	Status      string `json:"status,omitempty"`
}
