package marketdata

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// ProviderInfo contains metadata about a market data provider.
type ProviderInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requiresAuth"`
}

// providerRegistry holds metadata about all supported providers.
var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderPolygon: {
		Name:         string(ProviderPolygon),
		DisplayName:  "Polygon.io",
		Description:  "Stock and index aggregates (OHLCV) with minute to monthly bars",
		RequiresAuth: true,
	},
	ProviderBinance: {
		Name:         string(ProviderBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency klines for spot trading pairs",
		RequiresAuth: false,
	},
}

// GetSupportedProviders returns the names of all supported providers, sorted.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	return info, nil
}

// GetDownloadConfigSchema returns the JSON schema for a provider's download configuration.
func GetDownloadConfigSchema(providerName string) (string, error) {
	switch ProviderType(providerName) {
	case ProviderPolygon:
		//nolint:exhaustruct // Empty struct is intentional for schema generation
		return toJSONSchema(&PolygonDownloadConfig{})
	case ProviderBinance:
		//nolint:exhaustruct // Empty struct is intentional for schema generation
		return toJSONSchema(&BinanceDownloadConfig{})
	default:
		return "", errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}
}

// ParseDownloadConfig parses a JSON configuration string for the given provider.
// Returns the parsed config as an interface{} which can be type-asserted to the specific config type.
func ParseDownloadConfig(providerName string, jsonConfig string) (interface{}, error) {
	switch ProviderType(providerName) {
	case ProviderPolygon:
		return ParsePolygonConfig(jsonConfig)
	case ProviderBinance:
		return ParseBinanceConfig(jsonConfig)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}
}

func toJSONSchema(v any) (string, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}

	schema := reflector.Reflect(v)

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	return string(schemaBytes), nil
}
