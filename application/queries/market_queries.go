// Package queries defines the read requests served by the aggregation engine
package queries

import (
	"errors"

	"liberandum-backend/application/market"
	apperrors "liberandum-backend/pkg/errors"
	"liberandum-backend/pkg/utils"
)

func validate(q interface{}) error {
	if err := utils.ValidateStruct(q); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

func checkRange(name string, lo, hi *float64) error {
	if lo != nil && hi != nil && *lo > *hi {
		return apperrors.NewValidationError(name + " minimum exceeds maximum")
	}
	return nil
}

// ListTokensQuery asks for one page of the token listing
type ListTokensQuery struct {
	Page      int    `validate:"min=1"`
	Limit     int    `validate:"min=1,max=250"`
	Category  string `validate:"max=32"`
	SortBy    string `validate:"max=32"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`

	MinMarketCap      *float64
	MaxMarketCap      *float64
	MinPrice          *float64
	MaxPrice          *float64
	MinVolume         *float64
	MaxVolume         *float64
	PriceChange24hMin *float64
	PriceChange24hMax *float64

	HalalOnly     bool
	FavoritesOnly bool
	Favorites     []string
}

// Validate validates the query
func (q ListTokensQuery) Validate() error {
	if err := validate(q); err != nil {
		return err
	}
	return errors.Join(
		checkRange("market cap", q.MinMarketCap, q.MaxMarketCap),
		checkRange("price", q.MinPrice, q.MaxPrice),
		checkRange("volume", q.MinVolume, q.MaxVolume),
		checkRange("24h price change", q.PriceChange24hMin, q.PriceChange24hMax),
	)
}

// Params converts the query into engine parameters
func (q ListTokensQuery) Params() market.ListTokensParams {
	return market.ListTokensParams{
		Page:     q.Page,
		PageSize: q.Limit,
		Filter: market.FilterSpec{
			Category:          q.Category,
			MinMarketCap:      q.MinMarketCap,
			MaxMarketCap:      q.MaxMarketCap,
			MinPrice:          q.MinPrice,
			MaxPrice:          q.MaxPrice,
			MinVolume:         q.MinVolume,
			MaxVolume:         q.MaxVolume,
			PriceChange24hMin: q.PriceChange24hMin,
			PriceChange24hMax: q.PriceChange24hMax,
			HalalOnly:         q.HalalOnly,
			FavoritesOnly:     q.FavoritesOnly,
		},
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Favorites: market.NewFavorites(q.Favorites...),
	}
}

// SearchTokensQuery is a free-text token search
type SearchTokensQuery struct {
	Query     string `validate:"required,min=1,max=100"`
	Limit     int    `validate:"min=1,max=100"`
	Category  string `validate:"max=32"`
	SortBy    string `validate:"max=32"`
	HalalOnly bool
	Favorites []string
}

// Validate validates the query
func (q SearchTokensQuery) Validate() error {
	return validate(q)
}

// Params converts the query into engine parameters
func (q SearchTokensQuery) Params() market.SearchTokensParams {
	return market.SearchTokensParams{
		Query:     q.Query,
		Limit:     q.Limit,
		Category:  q.Category,
		SortBy:    q.SortBy,
		HalalOnly: q.HalalOnly,
		Favorites: market.NewFavorites(q.Favorites...),
	}
}

// GetTokenStatsQuery asks for the full numeric profile of one token
type GetTokenStatsQuery struct {
	SymbolOrID string `validate:"required,max=128"`
}

// Validate validates the query
func (q GetTokenStatsQuery) Validate() error {
	return validate(q)
}

// GetTokenDetailQuery asks for the token page in a language
type GetTokenDetailQuery struct {
	ID       string `validate:"required,max=128"`
	Language string `validate:"omitempty,oneof=en ru uz"`
}

// Validate validates the query
func (q GetTokenDetailQuery) Validate() error {
	return validate(q)
}

// ListExchangesQuery asks for the exchange listing
type ListExchangesQuery struct{}

// Validate validates the query
func (q ListExchangesQuery) Validate() error {
	return nil
}

// SearchExchangesQuery is a free-text exchange search
type SearchExchangesQuery struct {
	Query string `validate:"required,min=1,max=100"`
	Limit int    `validate:"min=1,max=100"`
}

// Validate validates the query
func (q SearchExchangesQuery) Validate() error {
	return validate(q)
}

// GetExchangeDetailQuery asks for one exchange
type GetExchangeDetailQuery struct {
	ID string `validate:"required,max=128"`
}

// Validate validates the query
func (q GetExchangeDetailQuery) Validate() error {
	return validate(q)
}
