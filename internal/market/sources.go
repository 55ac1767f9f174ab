package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"supplyfinder/internal/domain"
)

const (
	DefaultSMMURL         = "https://api.smm.cn/lithium"
	DefaultFastmarketsURL = "https://api.fastmarkets.com/lithium"

	EditorialPolicyKey = "policy"
)

// JSONFetcher fetches a URL and decodes a JSON object.
type JSONFetcher interface {
	FetchJSON(ctx context.Context, rawURL string) (map[string]any, error)
}

// EditorialReader reads signals maintained by the content team.
type EditorialReader interface {
	GetSignal(ctx context.Context, key string) (map[string]any, error)
}

// FetchFunc resolves one candidate source to a Signal.
type FetchFunc func(ctx context.Context) (domain.Signal, error)

// Source is one candidate in a fallback chain. Disabled sources are skipped
// without an attempt.
type Source struct {
	Name    string
	Enabled bool
	Fetch   FetchFunc
}

// Chain is the ordered candidate list for one signal.
type Chain struct {
	Signal   string
	Sources  []Source
	Fallback domain.Signal
}

// Chains groups the three signal chains.
type Chains struct {
	Lithium    Chain
	Congestion Chain
	Policy     Chain
}

// SourceConfig selects which providers are available.
type SourceConfig struct {
	SMMAPIKey           string
	SMMAPIURL           string
	FastmarketsAPIKey   string
	FastmarketsAPIURL   string
	CustomLithiumURL    string
	MarineTrafficAPIKey string
	MarineTrafficAPIURL string
	PortCongestionURL   string
	PolicyAlertURL      string
}

// NewChains builds the provider chains in priority order. editorial may be nil.
func NewChains(cfg SourceConfig, fetcher JSONFetcher, editorial EditorialReader) Chains {
	smmURL := orDefault(strings.TrimSpace(cfg.SMMAPIURL), DefaultSMMURL)
	fmURL := orDefault(strings.TrimSpace(cfg.FastmarketsAPIURL), DefaultFastmarketsURL)

	return Chains{
		Lithium: Chain{
			Signal: "lithium",
			Sources: []Source{
				httpSource("SMM", cfg.SMMAPIKey != "", fetcher, smmURL, cfg.SMMAPIKey, NormalizeSMM),
				httpSource("Fastmarkets", cfg.FastmarketsAPIKey != "", fetcher, fmURL, cfg.FastmarketsAPIKey, NormalizeFastmarkets),
				httpSource("Custom", cfg.CustomLithiumURL != "", fetcher, cfg.CustomLithiumURL, "", NormalizeCustomLithium),
			},
			Fallback: FallbackLithium,
		},
		Congestion: Chain{
			Signal: "congestion",
			Sources: []Source{
				httpSource("MarineTraffic", cfg.MarineTrafficAPIURL != "" && cfg.MarineTrafficAPIKey != "", fetcher,
					cfg.MarineTrafficAPIURL, cfg.MarineTrafficAPIKey, NormalizeCongestion),
				httpSource("Custom", cfg.PortCongestionURL != "", fetcher, cfg.PortCongestionURL, "", NormalizeCongestion),
			},
			Fallback: FallbackCongestion,
		},
		Policy: Chain{
			Signal: "policy",
			Sources: []Source{
				httpSource("Custom", cfg.PolicyAlertURL != "", fetcher, cfg.PolicyAlertURL, "", NormalizePolicy),
				editorialSource(editorial, EditorialPolicyKey, NormalizePolicy),
			},
			Fallback: FallbackPolicy,
		},
	}
}

func httpSource(name string, enabled bool, fetcher JSONFetcher, rawURL, apiKey string, normalize Normalizer) Source {
	return Source{
		Name:    name,
		Enabled: enabled && fetcher != nil,
		Fetch: func(ctx context.Context) (domain.Signal, error) {
			target, err := withAPIKey(rawURL, apiKey)
			if err != nil {
				return domain.Signal{}, err
			}
			data, err := fetcher.FetchJSON(ctx, target)
			if err != nil {
				return domain.Signal{}, err
			}
			return normalize(data)
		},
	}
}

func editorialSource(r EditorialReader, key string, normalize Normalizer) Source {
	return Source{
		Name:    "Editorial",
		Enabled: r != nil,
		Fetch: func(ctx context.Context) (domain.Signal, error) {
			data, err := r.GetSignal(ctx, key)
			if err != nil {
				return domain.Signal{}, err
			}
			return normalize(data)
		},
	}
}

// withAPIKey appends apikey to rawURL, keeping any existing query.
func withAPIKey(rawURL, apiKey string) (string, error) {
	if apiKey == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("market: parse source url: %w", err)
	}
	q := u.Query()
	q.Set("apikey", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
