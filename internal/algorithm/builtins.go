package algorithm

func (r *Registry) registerBuiltins() {
	r.RegisterGrowth(GrowthInfo{
		ID:          "flat",
		Description: "Base stats unchanged by level.",
	}, growthFlat)

	r.RegisterGrowth(GrowthInfo{
		ID:          "linear",
		Description: "floor(base*(1+m*(level-1)) + additive*(level-1)) per stat.",
		Params: map[string]string{
			"perLevelMultiplier": "required multiplier m applied per level above 1",
			"additivePerLevel":   "optional per-stat flat amount added per level above 1",
		},
	}, growthLinear)

	r.RegisterGrowth(GrowthInfo{
		ID:          "exponential",
		Description: "floor(base * exponent^(level-1)) per stat.",
		Params: map[string]string{
			"exponent": "required per-level growth factor",
		},
	}, growthExponential)

	r.RegisterCost(CostInfo{
		ID:          "flat",
		Description: "Level-ups cost nothing.",
	}, costFree)

	r.RegisterCost(CostInfo{
		ID:          "free",
		Description: "Level-ups cost nothing.",
	}, costFree)

	r.RegisterCost(CostInfo{
		ID:          "linear_cost",
		Description: "base + perLevel*(target-2) of one resource per target level >= 2.",
		Params: map[string]string{
			"resourceId": "scoped resource key charged, e.g. player.gold",
			"base":       "cost of reaching level 2",
			"perLevel":   "increment per further target level",
		},
	}, costLinear)

	r.RegisterCost(CostInfo{
		ID:          "mixed_linear_cost",
		Description: "Sum of linear costs over multiple player/character scoped resources.",
		Params: map[string]string{
			"costs": "list of {scope, resourceId, base, perLevel}; same-key entries sum",
		},
	}, costMixedLinear)
}
