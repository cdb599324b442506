package algorithm

import (
	"fmt"
	"math"
)

// Built-in growth algorithms. Levels below 1 are treated as 1 so a
// corrupted level can never shrink stats below their base.

func growthFlat(base map[string]int64, level int, params map[string]interface{}) (map[string]int64, error) {
	out := make(map[string]int64, len(base))
	for stat, v := range base {
		out[stat] = v
	}
	return out, nil
}

func growthLinear(base map[string]int64, level int, params map[string]interface{}) (map[string]int64, error) {
	multiplier, ok := numberParam(params, "perLevelMultiplier")
	if !ok {
		return nil, fmt.Errorf("linear growth requires numeric param %q", "perLevelMultiplier")
	}
	additive := numberMapParam(params, "additivePerLevel")

	steps := float64(clampLevel(level) - 1)
	out := make(map[string]int64, len(base))
	for stat, v := range base {
		scaled := float64(v)*(1+multiplier*steps) + additive[stat]*steps
		out[stat] = int64(math.Floor(scaled))
	}
	return out, nil
}

func growthExponential(base map[string]int64, level int, params map[string]interface{}) (map[string]int64, error) {
	exponent, ok := numberParam(params, "exponent")
	if !ok {
		return nil, fmt.Errorf("exponential growth requires numeric param %q", "exponent")
	}
	factor := math.Pow(exponent, float64(clampLevel(level)-1))
	out := make(map[string]int64, len(base))
	for stat, v := range base {
		out[stat] = int64(math.Floor(float64(v) * factor))
	}
	return out, nil
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	return level
}

// numberParam extracts a numeric param. JSON decodes numbers as float64
// and YAML as int, so both shapes are accepted.
func numberParam(params map[string]interface{}, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// numberMapParam extracts an optional map of per-stat numbers. Missing or
// malformed entries read as zero.
func numberMapParam(params map[string]interface{}, key string) map[string]float64 {
	out := make(map[string]float64)
	raw, ok := params[key].(map[string]interface{})
	if !ok {
		return out
	}
	for stat, v := range raw {
		switch n := v.(type) {
		case float64:
			out[stat] = n
		case int:
			out[stat] = float64(n)
		case int64:
			out[stat] = float64(n)
		}
	}
	return out
}
