package market

import (
	"strings"

	"liberandum-backend/pkg/common"
)

// Category values produced by Classify plus the two pseudo-categories
// understood by the filter.
const (
	CategoryAll            = "all"
	CategoryFavorites      = "favorites"
	CategoryStablecoin     = "stablecoin"
	CategoryLayer1         = "layer1"
	CategoryLayer2         = "layer2"
	CategoryDefi           = "defi"
	CategoryMeme           = "meme"
	CategoryGaming         = "gaming"
	CategoryNFT            = "nft"
	CategoryMetaverse      = "metaverse"
	CategoryWeb3           = "web3"
	CategoryDAO            = "dao"
	CategoryPrivacy        = "privacy"
	CategoryInfrastructure = "infrastructure"
	CategoryOther          = "other"
)

// Favorites is the caller's set of favorite token ids (lower-cased
// coingecko id, or symbol when the token has none).
type Favorites map[string]struct{}

// NewFavorites builds a set from raw ids, normalizing case and dropping blanks
func NewFavorites(ids ...string) Favorites {
	f := make(Favorites, len(ids))
	for _, id := range ids {
		id = strings.ToLower(strings.TrimSpace(id))
		if id != "" {
			f[id] = struct{}{}
		}
	}
	return f
}

// Contains reports whether id is a favorite
func (f Favorites) Contains(id string) bool {
	_, ok := f[strings.ToLower(id)]
	return ok
}

// FilterSpec narrows a token listing. Nil bounds are open.
type FilterSpec struct {
	Category          string
	MinMarketCap      *float64
	MaxMarketCap      *float64
	MinPrice          *float64
	MaxPrice          *float64
	MinVolume         *float64
	MaxVolume         *float64
	PriceChange24hMin *float64
	PriceChange24hMax *float64
	HalalOnly         bool
	FavoritesOnly     bool
}

// requiresFavorites reports whether the filter restricts to the favorites set
func (f FilterSpec) requiresFavorites() bool {
	return f.FavoritesOnly || f.category() == CategoryFavorites
}

// category is the requested category trimmed and lower-cased
func (f FilterSpec) category() string {
	return strings.ToLower(strings.TrimSpace(f.Category))
}

// SparklineData holds the 7 day price series
type SparklineData struct {
	Price []float64 `json:"price"`
}

// TokenSummary is one row of a token listing
type TokenSummary struct {
	ID                       string        `json:"id"`
	Symbol                   string        `json:"symbol"`
	Name                     string        `json:"name"`
	Image                    string        `json:"image"`
	CurrentPrice             float64       `json:"current_price"`
	MarketCap                int64         `json:"market_cap"`
	PriceChangePercentage24h float64       `json:"price_change_percentage_24h"`
	PriceChangePercentage7d  float64       `json:"price_change_percentage_7d"`
	SparklineIn7d            SparklineData `json:"sparkline_in_7d"`
	IsHalal                  *bool         `json:"is_halal"`
	IsLayerOne               bool          `json:"is_layer_one"`
	IsStablecoin             bool          `json:"is_stablecoin"`
	TokenCategory            string        `json:"token_category"`
	MarketCapRank            *int64        `json:"market_cap_rank"`
	Volume24h                *float64      `json:"volume_24h"`
	TotalSupply              *float64      `json:"total_supply"`
	MaxSupply                *float64      `json:"max_supply"`
	IsFavorite               bool          `json:"is_favorite"`
}

// TokenListResponse is a page of token summaries
type TokenListResponse struct {
	Data       []TokenSummary    `json:"data"`
	Pagination common.Pagination `json:"pagination"`
}

// TokenFullStats is the complete numeric profile of one canonical stats record
type TokenFullStats struct {
	ID                   string   `json:"id"`
	Symbol               string   `json:"symbol"`
	CoinName             *string  `json:"coin_name"`
	CoingeckoID          *string  `json:"coingecko_id"`
	MarketCap            *float64 `json:"market_cap"`
	TradingVolume24h     *float64 `json:"trading_volume_24h"`
	TokenMaxSupply       *int64   `json:"token_max_supply"`
	TokenTotalSupply     *int64   `json:"token_total_supply"`
	TransactionsCount30d *int64   `json:"transactions_count_30d"`
	Volume1mChange1m     *float64 `json:"volume_1m_change_1m"`
	Volume24hChange24h   *float64 `json:"volume_24h_change_24h"`
	Price                *float64 `json:"price"`
	ATH                  *float64 `json:"ath"`
	ATL                  *float64 `json:"atl"`
	LiquidityScore       *float64 `json:"liquidity_score"`
	TVL                  *float64 `json:"tvl"`
	PriceChange24h       *float64 `json:"price_change_24h"`
	PriceChange7d        *float64 `json:"price_change_7d"`
	PriceChange30d       *float64 `json:"price_change_30d"`
	MarketCapRank        *int64   `json:"market_cap_rank"`
	VolumeRank           *int64   `json:"volume_rank"`
	CreatedAt            *string  `json:"created_at"`
	UpdatedAt            *string  `json:"updated_at"`
}

// SocialLinks groups a token's outbound links
type SocialLinks struct {
	Website        string `json:"website"`
	Twitter        string `json:"twitter"`
	Facebook       string `json:"facebook"`
	Reddit         string `json:"reddit"`
	Instagram      string `json:"instagram"`
	Discord        string `json:"discord"`
	Medium         string `json:"medium"`
	Youtube        string `json:"youtube"`
	RepoLink       string `json:"repo_link"`
	WhitelabelLink string `json:"whitelabel_link"`
}

// AdditionalInfo carries descriptive and relational metadata
type AdditionalInfo struct {
	Description       string   `json:"description"`
	Exchanges         []string `json:"exchanges"`
	SecurityAudits    []string `json:"security_audits"`
	RelatedPeople     []string `json:"related_people"`
	RelatedWallets    []string `json:"related_wallets"`
	RelatedConductors []string `json:"related_conductors"`
	CoingeckoID       string   `json:"coingecko_id"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
	TVL               float64  `json:"tvl"`
	ImportSource      string   `json:"import_source"`
}

// HalalStatus is the compliance verdict
type HalalStatus struct {
	IsHalal    *bool    `json:"is_halal"`
	Verified   *bool    `json:"verified"`
	HalalScore *float64 `json:"halal_score"`
}

// MarketData holds integer-truncated market figures in USD
type MarketData struct {
	MarketCapUSD             int64 `json:"market_cap_usd"`
	FullyDilutedValuationUSD int64 `json:"fully_diluted_valuation_usd"`
	TotalVolumeUSD           int64 `json:"total_volume_usd"`
	CirculatingSupplyValue   int64 `json:"circulating_supply_value"`
	MaxSupplyValue           int64 `json:"max_supply_value"`
	TotalSupplyValue         int64 `json:"total_supply_value"`
}

// PricePoint is a price with the date it was observed
type PricePoint struct {
	Price float64 `json:"price"`
	Date  string  `json:"date"`
}

// PriceRange is a min/max pair
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Statistics carries the extremes
type Statistics struct {
	AllTimeHigh        PricePoint `json:"all_time_high"`
	AllTimeLow         PricePoint `json:"all_time_low"`
	PriceIndicators24h PriceRange `json:"price_indicators_24h"`
}

// TokenDetail is the full token page
type TokenDetail struct {
	ID                       string         `json:"id"`
	Symbol                   string         `json:"symbol"`
	Name                     string         `json:"name"`
	Image                    string         `json:"image"`
	CurrentPrice             float64        `json:"current_price"`
	PriceChangePercentage24h float64        `json:"price_change_percentage_24h"`
	TokenCategory            string         `json:"token_category"`
	HalalStatus              HalalStatus    `json:"halal_status"`
	MarketData               MarketData     `json:"market_data"`
	Statistics               Statistics     `json:"statistics"`
	SocialLinks              SocialLinks    `json:"social_links"`
	AdditionalInfo           AdditionalInfo `json:"additional_info"`
}

// ExchangeHalalStatus is the compliance verdict for an exchange
type ExchangeHalalStatus struct {
	IsHalal *bool  `json:"is_halal"`
	Score   string `json:"score"`
	Rating  int64  `json:"rating"`
}

// ExchangeSummary is one row of the exchange listing
type ExchangeSummary struct {
	Rank                 int64               `json:"rank"`
	ID                   string              `json:"id"`
	Name                 string              `json:"name"`
	Image                string              `json:"image"`
	HalalStatus          ExchangeHalalStatus `json:"halal_status"`
	TrustScore           int64               `json:"trust_score"`
	Volume24hUSD         float64             `json:"volume_24h_usd"`
	Volume24hFormatted   string              `json:"volume_24h_formatted"`
	ReservesUSD          float64             `json:"reserves_usd"`
	ReservesFormatted    string              `json:"reserves_formatted"`
	TradingPairsCount    int64               `json:"trading_pairs_count"`
	VisitorsMonthly      string              `json:"visitors_monthly"`
	SupportedFiat        []string            `json:"supported_fiat"`
	SupportedFiatDisplay string              `json:"supported_fiat_display"`
	VolumeChart7d        []float64           `json:"volume_chart_7d"`
	ExchangeType         string              `json:"exchange_type"`
}

// ExchangeListResponse wraps an exchange listing
type ExchangeListResponse struct {
	Data []ExchangeSummary `json:"data"`
}

// ExchangeDetail is the full exchange page
type ExchangeDetail struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Image             string              `json:"image"`
	HalalStatus       ExchangeHalalStatus `json:"halal_status"`
	TrustScore        int64               `json:"trust_score"`
	Volume24hUSD      float64             `json:"volume_24h_usd"`
	TotalAssetsUSD    float64             `json:"total_assets_usd"`
	TradingPairsCount int64               `json:"trading_pairs_count"`
	VisitorsMonthly   string              `json:"visitors_monthly"`
	WebsiteURL        string              `json:"website_url"`
	SupportedFiat     []string            `json:"supported_fiat"`
	Country           *string             `json:"country"`
	YearEstablished   *int64              `json:"year_established"`
}
