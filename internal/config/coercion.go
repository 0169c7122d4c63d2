package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Coercion rule validation errors.
var (
	ErrNoInStockTokens     = errors.New("stock.in_stock_tokens must not be empty")
	ErrNoOutOfStockTokens  = errors.New("stock.out_of_stock_tokens must not be empty")
	ErrOverlappingTokens   = errors.New("stock token appears in both in_stock_tokens and out_of_stock_tokens")
	ErrEmptyDefaultName    = errors.New("name.default must not be empty")
	ErrInvalidStockDefault = errors.New("stock.unknown_token must be 'in_stock' or 'out_of_stock'")
)

// CoercionRules controls how loosely typed bulk record fields are normalized.
type CoercionRules struct {
	Stock StockRules `yaml:"stock"`
	Name  NameRules  `yaml:"name"`
}

// StockRules maps free-text stock tokens to a boolean.
type StockRules struct {
	InStockTokens    []string `yaml:"in_stock_tokens"`
	OutOfStockTokens []string `yaml:"out_of_stock_tokens"`
	UnknownToken     string   `yaml:"unknown_token"` // in_stock | out_of_stock
}

// NameRules holds the product name fallback.
type NameRules struct {
	Default string `yaml:"default"`
}

// DefaultCoercionRules returns the built-in Turkish/English token sets.
func DefaultCoercionRules() *CoercionRules {
	return &CoercionRules{
		Stock: StockRules{
			InStockTokens:    []string{"var", "mevcut", "stokta", "evet", "true", "yes", "1"},
			OutOfStockTokens: []string{"yok", "tükendi", "hayır", "false", "no", "0"},
			UnknownToken:     "in_stock",
		},
		Name: NameRules{Default: "no name"},
	}
}

// LoadCoercionRules reads rules from a YAML file. Missing sections keep their defaults.
func LoadCoercionRules(path string) (*CoercionRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read coercion config: %w", err)
	}

	rules := DefaultCoercionRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coercion config: %w", err)
	}
	return rules, nil
}

// Validate checks the rules for consistency.
func (r *CoercionRules) Validate() error {
	if len(r.Stock.InStockTokens) == 0 {
		return ErrNoInStockTokens
	}
	if len(r.Stock.OutOfStockTokens) == 0 {
		return ErrNoOutOfStockTokens
	}
	if r.Stock.UnknownToken != "in_stock" && r.Stock.UnknownToken != "out_of_stock" {
		return ErrInvalidStockDefault
	}
	if strings.TrimSpace(r.Name.Default) == "" {
		return ErrEmptyDefaultName
	}

	seen := make(map[string]struct{}, len(r.Stock.InStockTokens))
	for _, t := range r.Stock.InStockTokens {
		seen[NormalizeToken(t)] = struct{}{}
	}
	for _, t := range r.Stock.OutOfStockTokens {
		if _, ok := seen[NormalizeToken(t)]; ok {
			return fmt.Errorf("%w: %q", ErrOverlappingTokens, t)
		}
	}
	return nil
}

// NormalizeToken trims and lowercases a stock token for comparison.
func NormalizeToken(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
