package market

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"supplyfinder/internal/domain"
)

// Fallback snapshots served when no source answers.
var (
	FallbackLithium    = domain.Signal{Value: "¥105,500/ton", Trend: domain.TrendDown, Change: "-2.3% this week"}
	FallbackCongestion = domain.Signal{Value: "Moderate", Trend: domain.TrendNeutral, Change: "+3 days avg delay"}
	FallbackPolicy     = domain.Signal{Value: "Germany", Trend: domain.TrendUp, Change: "New subsidy draft released"}
)

// Normalizer maps one provider's JSON object onto a Signal. An error marks the
// response as unusable so the chain moves on.
type Normalizer func(data map[string]any) (domain.Signal, error)

var errMissingPrice = errors.New("market: response has no price field")

// NormalizeSMM reads {spot, trend, change} from the SMM lithium feed.
func NormalizeSMM(data map[string]any) (domain.Signal, error) {
	spot := text(data, "spot")
	if spot == "" {
		return domain.Signal{}, fmt.Errorf("smm: %w", errMissingPrice)
	}
	return domain.Signal{
		Value:  spot + "/ton",
		Trend:  trend(data, domain.TrendNeutral),
		Change: text(data, "change"),
	}, nil
}

// NormalizeFastmarkets reads {assessment, trend, change}.
func NormalizeFastmarkets(data map[string]any) (domain.Signal, error) {
	assessment := text(data, "assessment")
	if assessment == "" {
		return domain.Signal{}, fmt.Errorf("fastmarkets: %w", errMissingPrice)
	}
	return domain.Signal{
		Value:  assessment + "/ton",
		Trend:  trend(data, domain.TrendNeutral),
		Change: text(data, "change"),
	}, nil
}

// NormalizeCustomLithium accepts a numeric pricePerTon, or value or price as given.
func NormalizeCustomLithium(data map[string]any) (domain.Signal, error) {
	value := ""
	if n, ok := data["pricePerTon"].(float64); ok {
		value = formatNumber(n) + "/ton"
	} else {
		value = orDefault(text(data, "value", "price"), "N/A")
	}
	return domain.Signal{
		Value:  value,
		Trend:  trend(data, domain.TrendNeutral),
		Change: text(data, "change"),
	}, nil
}

// NormalizeCongestion accepts value or level. MarineTraffic and custom feeds
// share this shape.
func NormalizeCongestion(data map[string]any) (domain.Signal, error) {
	return domain.Signal{
		Value:  orDefault(text(data, "value", "level"), FallbackCongestion.Value),
		Trend:  trend(data, FallbackCongestion.Trend),
		Change: orDefault(text(data, "change"), FallbackCongestion.Change),
	}, nil
}

// NormalizePolicy accepts value or region.
func NormalizePolicy(data map[string]any) (domain.Signal, error) {
	return domain.Signal{
		Value:  orDefault(text(data, "value", "region"), FallbackPolicy.Value),
		Trend:  trend(data, FallbackPolicy.Trend),
		Change: orDefault(text(data, "change"), FallbackPolicy.Change),
	}, nil
}

// text returns the first non-empty value among keys, formatting numbers.
func text(data map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v != 0 {
				return formatNumber(v)
			}
		case bool:
			if v {
				return "true"
			}
		}
	}
	return ""
}

func trend(data map[string]any, def domain.Trend) domain.Trend {
	s, _ := data["trend"].(string)
	if t, ok := domain.ParseTrend(strings.ToLower(strings.TrimSpace(s))); ok {
		return t
	}
	return def
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
