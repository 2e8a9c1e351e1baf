package config

import (
	"errors"
	"time"
)

// DomainConfig holds the business limits of the aggregation engine and the
// snapshot cache
type DomainConfig struct {
	// Token listing
	DefaultPageSize     int
	MaxPageSize         int
	StatsScanMultiplier int
	MaxStatsScan        int
	TokenScanLimit      int

	// Search
	DefaultSearchLimit int
	MaxSearchLimit     int
	SearchScanLimit    int

	// Exchanges
	ExchangeScanLimit       int
	ExchangeSearchScanLimit int

	// Sorting
	MissingRank int64

	// Global snapshot
	CacheTTL          time.Duration
	FetchTimeout      time.Duration
	APICreditBudget   int
	CallsPerAPICredit int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DefaultPageSize:     100,
		MaxPageSize:         250,
		StatsScanMultiplier: 5,
		MaxStatsScan:        2000,
		TokenScanLimit:      2000,

		DefaultSearchLimit: 20,
		MaxSearchLimit:     100,
		SearchScanLimit:    1000,

		ExchangeScanLimit:       50,
		ExchangeSearchScanLimit: 500,

		MissingRank: 999999,

		CacheTTL:          time.Hour,
		FetchTimeout:      time.Minute,
		APICreditBudget:   10000,
		CallsPerAPICredit: 30,
	}
}

// DevelopmentDomainConfig shortens the cache so refreshes are easy to observe
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.CacheTTL = 5 * time.Minute
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// StatsScanLimit is how many stats rows a listing page reads before filtering
func (c *DomainConfig) StatsScanLimit(pageSize int) int {
	n := pageSize * c.StatsScanMultiplier
	if n > c.MaxStatsScan {
		return c.MaxStatsScan
	}
	return n
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.DefaultPageSize <= 0 || c.DefaultPageSize > c.MaxPageSize {
		return errors.New("default page size must be between 1 and max page size")
	}
	if c.DefaultSearchLimit <= 0 || c.DefaultSearchLimit > c.MaxSearchLimit {
		return errors.New("default search limit must be between 1 and max search limit")
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache TTL must be positive")
	}
	return nil
}
