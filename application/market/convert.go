package market

import (
	"errors"
	"fmt"
	"strings"

	"liberandum-backend/infrastructure/persistence/abstractions"
	"liberandum-backend/pkg/utils"
)

// ErrNoIdentifier is returned when a stats record has neither a symbol nor a
// coingecko id and so cannot be addressed by clients
var ErrNoIdentifier = errors.New("record has no symbol or coingecko_id")

func stringOr(r abstractions.Record, key, def string) string {
	if r == nil {
		return def
	}
	if s := utils.SafeString(r[key]); s != "" {
		return s
	}
	return def
}

func optionalString(r abstractions.Record, key string) *string {
	if s := stringOr(r, key, ""); s != "" {
		return &s
	}
	return nil
}

func floatList(v interface{}) []float64 {
	list := utils.SafeList(v)
	out := make([]float64, 0, len(list))
	for _, item := range list {
		if f, ok := utils.ParseFloat(item); ok {
			out = append(out, f)
		}
	}
	return out
}

// ToTokenSummary converts a canonical stats record and its optional
// descriptive record into a listing row
func ToTokenSummary(stat, token abstractions.Record, favorites Favorites) (TokenSummary, error) {
	symbol := strings.ToUpper(stat.String(abstractions.FieldSymbol))
	id := TokenID(stat)
	if id == "" {
		return TokenSummary{}, ErrNoIdentifier
	}
	if symbol == "" {
		symbol = "UNKNOWN"
	}

	halal := stat["is_halal"]
	if !utils.SafeBool(halal, false) && token != nil && token["is_halal"] != nil {
		halal = token["is_halal"]
	}

	category := Classify(stat, token)
	return TokenSummary{
		ID:                       id,
		Symbol:                   symbol,
		Name:                     stringOr(stat, "coin_name", "Unknown Token"),
		Image:                    stringOr(token, "avatar_image", ""),
		CurrentPrice:             utils.SafeFloat(stat["price"], 0),
		MarketCap:                utils.SafeInt(stat["market_cap"], 0),
		PriceChangePercentage24h: utils.SafeFloat(stat["volume_24h_change_24h"], 0),
		PriceChangePercentage7d:  utils.SafeFloat(stat["price_change_percentage_7d"], 0),
		SparklineIn7d:            SparklineData{Price: floatList(stat["sparkline_7d"])},
		IsHalal:                  utils.OptionalBool(halal),
		IsLayerOne:               category == CategoryLayer1,
		IsStablecoin:             category == CategoryStablecoin,
		TokenCategory:            category,
		MarketCapRank:            utils.OptionalInt(stat["market_cap_rank"]),
		Volume24h:                utils.OptionalFloat(stat["trading_volume_24h"]),
		TotalSupply:              utils.OptionalFloat(stat["token_total_supply"]),
		MaxSupply:                utils.OptionalFloat(stat["token_max_supply"]),
		IsFavorite:               favorites.Contains(id),
	}, nil
}

// ToTokenFullStats exposes every numeric field of a stats record, leaving
// absent or malformed values null
func ToTokenFullStats(stat abstractions.Record) *TokenFullStats {
	return &TokenFullStats{
		ID:                   stat.ID(),
		Symbol:               stat.Symbol(),
		CoinName:             optionalString(stat, "coin_name"),
		CoingeckoID:          optionalString(stat, "coingecko_id"),
		MarketCap:            utils.OptionalFloat(stat["market_cap"]),
		TradingVolume24h:     utils.OptionalFloat(stat["trading_volume_24h"]),
		TokenMaxSupply:       utils.OptionalInt(stat["token_max_supply"]),
		TokenTotalSupply:     utils.OptionalInt(stat["token_total_supply"]),
		TransactionsCount30d: utils.OptionalInt(stat["transactions_count_30d"]),
		Volume1mChange1m:     utils.OptionalFloat(stat["volume_1m_change_1m"]),
		Volume24hChange24h:   utils.OptionalFloat(stat["volume_24h_change_24h"]),
		Price:                utils.OptionalFloat(stat["price"]),
		ATH:                  utils.OptionalFloat(stat["ath"]),
		ATL:                  utils.OptionalFloat(stat["atl"]),
		LiquidityScore:       utils.OptionalFloat(stat["liquidity_score"]),
		TVL:                  utils.OptionalFloat(stat["tvl"]),
		PriceChange24h:       utils.OptionalFloat(stat["price_change_24h"]),
		PriceChange7d:        utils.OptionalFloat(stat["price_change_7d"]),
		PriceChange30d:       utils.OptionalFloat(stat["price_change_30d"]),
		MarketCapRank:        utils.OptionalInt(stat["market_cap_rank"]),
		VolumeRank:           utils.OptionalInt(stat["volume_rank"]),
		CreatedAt:            optionalString(stat, abstractions.FieldCreatedAt),
		UpdatedAt:            optionalString(stat, abstractions.FieldUpdatedAt),
	}
}

// Supported description languages. Anything else reads the default text.
const (
	LanguageEN = "en"
	LanguageRU = "ru"
	LanguageUZ = "uz"
)

func localizedDescription(token abstractions.Record, language string) string {
	switch language {
	case LanguageRU, LanguageUZ:
		if s := stringOr(token, "description_"+language, ""); s != "" {
			return s
		}
	}
	return stringOr(token, "description", "")
}

// ToTokenDetail builds the token page from a canonical stats record and the
// first live descriptive record, which may be nil
func ToTokenDetail(stat, token abstractions.Record, language string) *TokenDetail {
	coingeckoID := stringOr(token, "coingecko_id", "")
	if token == nil {
		coingeckoID = stringOr(stat, "coingecko_id", "")
	}

	return &TokenDetail{
		ID:                       stringOr(stat, "coingecko_id", ""),
		Symbol:                   stat.Symbol(),
		Name:                     stringOr(stat, "coin_name", ""),
		Image:                    stringOr(token, "avatar_image", ""),
		CurrentPrice:             utils.SafeFloat(stat["price"], 0),
		PriceChangePercentage24h: utils.SafeFloat(stat["volume_24h_change_24h"], 0),
		TokenCategory:            Classify(stat, token),
		HalalStatus: HalalStatus{
			IsHalal:    utils.OptionalBool(stat["is_halal"]),
			Verified:   utils.OptionalBool(stat["halal_verified"]),
			HalalScore: utils.OptionalFloat(stat["halal_score"]),
		},
		MarketData: MarketData{
			MarketCapUSD:             utils.SafeInt(stat["market_cap"], 0),
			FullyDilutedValuationUSD: utils.SafeInt(stat["fully_diluted_valuation"], 0),
			TotalVolumeUSD:           utils.SafeInt(stat["trading_volume_24h"], 0),
			CirculatingSupplyValue:   utils.SafeInt(stat["circulating_supply"], 0),
			MaxSupplyValue:           utils.SafeInt(stat["token_max_supply"], 0),
			TotalSupplyValue:         utils.SafeInt(stat["token_total_supply"], 0),
		},
		Statistics: Statistics{
			AllTimeHigh:        PricePoint{Price: utils.SafeFloat(stat["ath"], 0), Date: stringOr(stat, "ath_date", "")},
			AllTimeLow:         PricePoint{Price: utils.SafeFloat(stat["atl"], 0), Date: stringOr(stat, "atl_date", "")},
			PriceIndicators24h: PriceRange{Min: utils.SafeFloat(stat["low_24h"], 0), Max: utils.SafeFloat(stat["high_24h"], 0)},
		},
		SocialLinks: SocialLinks{
			Website:        stringOr(token, "website", ""),
			Twitter:        stringOr(token, "twitter", ""),
			Facebook:       stringOr(token, "facebook", ""),
			Reddit:         stringOr(token, "reddit", ""),
			Instagram:      stringOr(token, "instagram", ""),
			Discord:        stringOr(token, "discord", ""),
			Medium:         stringOr(token, "medium", ""),
			Youtube:        stringOr(token, "youtube", ""),
			RepoLink:       stringOr(token, "repo_link", ""),
			WhitelabelLink: stringOr(token, "whitelabel_link", ""),
		},
		AdditionalInfo: AdditionalInfo{
			Description:       localizedDescription(token, language),
			Exchanges:         stringList(token, "exchanges"),
			SecurityAudits:    stringList(token, "security_audits"),
			RelatedPeople:     stringList(token, "related_people"),
			RelatedWallets:    stringList(token, "related_wallets_data"),
			RelatedConductors: stringList(token, "related_conductors_data"),
			CoingeckoID:       coingeckoID,
			CreatedAt:         stringOr(token, abstractions.FieldCreatedAt, ""),
			UpdatedAt:         stringOr(token, abstractions.FieldUpdatedAt, ""),
			TVL:               utils.SafeFloat(token["tvl"], 0),
			ImportSource:      stringOr(token, "import_source", ""),
		},
	}
}

func stringList(r abstractions.Record, key string) []string {
	return utils.SafeStringList(r[key])
}

// FormatCurrency renders a USD amount as $1.23B, $4.56M, $7.89K or $0.12
func FormatCurrency(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

// ToExchangeSummary converts an exchange stats record. exchange is the
// optional descriptive record supplying the image; rank is used when the
// record carries none.
func ToExchangeSummary(stat, exchange abstractions.Record, rank int64) ExchangeSummary {
	name := utils.SafeString(stat["name"])
	idSource := stringOr(stat, "coingecko_id", stringOr(stat, "name", "unknown"))
	volume := utils.SafeFloat(stat["trading_volume_24h"], 0)
	reserves := utils.SafeFloat(stat["reserves"], 0)

	fiat := utils.SafeStringList(stat["supported_fiat"])
	if len(fiat) == 0 {
		fiat = utils.SafeStringList(stat["list_supported"])
	}

	image := stringOr(stat, "image", "")
	if image == "" {
		image = stringOr(exchange, "avatar_image", "")
	}

	return ExchangeSummary{
		Rank:                 utils.SafeInt(stat["rank"], rank),
		ID:                   strings.ReplaceAll(strings.ToLower(idSource), " ", "_"),
		Name:                 name,
		Image:                image,
		HalalStatus:          exchangeHalal(stat),
		TrustScore:           utils.SafeInt(stat["trust_score"], 0),
		Volume24hUSD:         volume,
		Volume24hFormatted:   FormatCurrency(volume),
		ReservesUSD:          reserves,
		ReservesFormatted:    FormatCurrency(reserves),
		TradingPairsCount:    utils.SafeInt(firstPresent(stat, "trading_pairs", "trading_pairs_count"), 0),
		VisitorsMonthly:      fmt.Sprint(utils.SafeInt(firstPresent(stat, "visitors_monthly", "visitors_30d"), 0)),
		SupportedFiat:        fiat,
		SupportedFiatDisplay: strings.Join(fiat[:min(3, len(fiat))], ", "),
		VolumeChart7d:        floatList(firstPresent(stat, "volume_chart_7d", "inflows_1w")),
		ExchangeType:         stringOr(stat, "exchange_type", "centralized"),
	}
}

// ToExchangeDetail converts the exchange stats record found for requestedID
func ToExchangeDetail(stat abstractions.Record, requestedID string) *ExchangeDetail {
	return &ExchangeDetail{
		ID:                stringOr(stat, "coingecko_id", requestedID),
		Name:              utils.SafeString(stat["name"]),
		Image:             stringOr(stat, "image", ""),
		HalalStatus:       exchangeHalal(stat),
		TrustScore:        utils.SafeInt(stat["trust_score"], 0),
		Volume24hUSD:      utils.SafeFloat(stat["trading_volume_24h"], 0),
		TotalAssetsUSD:    utils.SafeFloat(stat["reserves"], 0),
		TradingPairsCount: utils.SafeInt(firstPresent(stat, "trading_pairs", "trading_pairs_count"), 0),
		VisitorsMonthly:   fmt.Sprint(utils.SafeInt(stat["visitors_monthly"], 0)),
		WebsiteURL:        stringOr(stat, "website_url", ""),
		SupportedFiat:     utils.SafeStringList(stat["supported_fiat"]),
		Country:           optionalString(stat, "country"),
		YearEstablished:   utils.OptionalInt(stat["year_established"]),
	}
}

func exchangeHalal(stat abstractions.Record) ExchangeHalalStatus {
	return ExchangeHalalStatus{
		IsHalal: utils.OptionalBool(stat["is_halal"]),
		Score:   utils.SafeString(stat["halal_score"]),
		Rating:  utils.SafeInt(stat["halal_rating"], 0),
	}
}

func firstPresent(r abstractions.Record, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v
		}
	}
	return nil
}
