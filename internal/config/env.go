// Package config reads handler configuration from the environment and,
// for secrets, from SSM Parameter Store.
package config

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Env looks up an environment variable. os.Getenv satisfies it.
type Env func(key string) string

// Str returns the trimmed value of key, or def when it is empty.
func (e Env) Str(key, def string) string {
	if v := strings.TrimSpace(e(key)); v != "" {
		return v
	}
	return def
}

func (e Env) Int(key string, def int) int {
	v := strings.TrimSpace(e(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Float returns def when key is unset, unparsable, or not finite.
func (e Env) Float(key string, def float64) float64 {
	v := strings.TrimSpace(e(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Bool reports the value of key and whether it was set at all. Only the
// literal "true" counts as true.
func (e Env) Bool(key string) (value, set bool) {
	v := strings.TrimSpace(e(key))
	if v == "" {
		return false, false
	}
	return v == "true", true
}

// Minutes reads key as a (possibly fractional) number of minutes.
// Non-positive values fall back to def.
func (e Env) Minutes(key string, def time.Duration) time.Duration {
	return scale(e.Float(key, -1), time.Minute, def)
}

// Seconds reads key as a (possibly fractional) number of seconds.
// Non-positive values fall back to def.
func (e Env) Seconds(key string, def time.Duration) time.Duration {
	return scale(e.Float(key, -1), time.Second, def)
}

// scale converts v units to a Duration, saturating at the largest Duration.
func scale(v float64, unit, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	d := v * float64(unit)
	if d >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}
