package domain

func normalizeUnitsPerCase(unitsPerCase int) int {
	if unitsPerCase <= 0 {
		return 1
	}
	return unitsPerCase
}

// CaseToUnits converts received cases into sellable units.
func CaseToUnits(cases int, unitsPerCase int) int {
	return cases * normalizeUnitsPerCase(unitsPerCase)
}

// UnitCostFromCase derives the per-unit cost from a case price, rounding half up.
// Without a positive case size the case price is the unit price.
func UnitCostFromCase(caseCost int64, unitsPerCase int) int64 {
	if unitsPerCase <= 0 {
		return caseCost
	}
	upc := int64(unitsPerCase)
	return (caseCost + upc/2) / upc
}

// SplitUnits breaks a unit quantity into whole cases and loose units.
func SplitUnits(units int, unitsPerCase int) (cases int, remainder int) {
	upc := normalizeUnitsPerCase(unitsPerCase)
	return units / upc, units % upc
}
