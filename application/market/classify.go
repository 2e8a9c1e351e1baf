package market

import (
	"strings"

	"liberandum-backend/infrastructure/persistence/abstractions"
)

var (
	stablecoinSymbols = symbolSet("USDT", "USDC", "DAI", "BUSD", "FRAX", "TUSD", "FDUSD", "LUSD", "SUSD")
	layer1Symbols     = symbolSet("BTC", "ETH", "BNB", "ADA", "SOL", "AVAX", "MATIC", "DOT", "ATOM", "NEAR", "FTM", "ALGO", "HBAR", "XTZ")
	layer2Symbols     = symbolSet("ARB", "OP", "LRC", "IMX", "METIS")
)

type nameRule struct {
	category string
	needles  []string
}

// Order matters: the first matching rule wins.
var nameRules = []nameRule{
	{CategoryLayer2, []string{"layer 2", "l2", "arbitrum", "optimism", "polygon"}},
	{CategoryDefi, []string{"defi", "swap", "finance", "lending", "protocol", "yield", "liquidity"}},
	{CategoryMeme, []string{"meme", "doge", "shib", "pepe", "floki", "wojak"}},
	{CategoryGaming, []string{"game", "gaming", "play", "metaverse", "virtual"}},
	{CategoryNFT, []string{"nft", "collectible", "art", "token"}},
	{CategoryMetaverse, []string{"metaverse", "virtual reality", "vr", "ar", "augmented"}},
	{CategoryWeb3, []string{"web3", "decentralized", "infrastructure", "protocol"}},
	{CategoryDAO, []string{"dao", "governance", "voting"}},
	{CategoryPrivacy, []string{"privacy", "anonymous", "private", "confidential"}},
	{CategoryInfrastructure, []string{"oracle", "data", "network", "node", "validator"}},
}

func symbolSet(symbols ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		set[s] = struct{}{}
	}
	return set
}

// Classify returns the category of a canonical stats record. An explicit
// token_category on the record, then on the joined descriptive record, wins;
// otherwise symbol allow-lists are consulted before name heuristics.
func Classify(stat, token abstractions.Record) string {
	if c := explicitCategory(stat); c != "" {
		return c
	}
	if c := explicitCategory(token); c != "" {
		return c
	}
	return ClassifyByName(stat.Symbol(), stat.String("coin_name"))
}

func explicitCategory(r abstractions.Record) string {
	if r == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(r.String("token_category")))
}

// ClassifyByName runs the heuristic cascade on a symbol and display name
func ClassifyByName(symbol, name string) string {
	symbol = strings.ToUpper(symbol)
	if _, ok := stablecoinSymbols[symbol]; ok {
		return CategoryStablecoin
	}
	if _, ok := layer1Symbols[symbol]; ok {
		return CategoryLayer1
	}
	if _, ok := layer2Symbols[symbol]; ok {
		return CategoryLayer2
	}

	name = strings.ToLower(name)
	for _, rule := range nameRules {
		for _, needle := range rule.needles {
			if strings.Contains(name, needle) {
				return rule.category
			}
		}
	}
	return CategoryOther
}
