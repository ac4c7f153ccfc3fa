package assets

import (
	"fmt"
	"time"
)

// roundingEpsilon matches the ledger's currency-rounding tolerance.
const roundingEpsilon = 0.01

// FractionalYears measures elapsed time between purchase and asOf in years
// with month granularity: whole years plus months/12. Day-of-month is
// deliberately ignored so an asset bought mid-month depreciates the same as
// one bought on the first.
func FractionalYears(purchase, asOf time.Time) float64 {
	months := (asOf.Year()-purchase.Year())*12 + int(asOf.Month()) - int(purchase.Month())
	if months < 0 {
		months = 0
	}
	return float64(months) / 12.0
}

// AccumulatedAt computes accumulated depreciation from scratch for the given
// elapsed fractional years. Recomputing rather than accumulating keeps the
// result idempotent for a fixed asOf.
func AccumulatedAt(method Method, cost, residual, ratePercent float64, usefulLifeYears int, fractionalYears float64) (float64, error) {
	switch method {
	case MethodNone:
		return 0, nil
	case MethodStraightLine:
		if usefulLifeYears <= 0 {
			return 0, nil
		}
		base := cost - residual
		annual := base / float64(usefulLifeYears)
		accumulated := annual * fractionalYears
		// Book value never falls below the residual value.
		if accumulated > base {
			accumulated = base
		}
		return accumulated, nil
	case MethodDecliningBalance:
		return decliningAccumulated(cost, ratePercent/100, fractionalYears), nil
	case MethodDoubleDeclining:
		if usefulLifeYears <= 0 {
			return 0, nil
		}
		return decliningAccumulated(cost, 2/float64(usefulLifeYears), fractionalYears), nil
	case MethodUnitsOfProduction:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}

// decliningAccumulated compounds the rate once per whole elapsed year; the
// fractional remainder of the final year is not compounded.
func decliningAccumulated(cost, rate, fractionalYears float64) float64 {
	remaining := cost
	for i := 0; i < int(fractionalYears); i++ {
		remaining -= remaining * rate
	}
	return cost - remaining
}

// depreciatedAt reports whether the asset is fully written down.
func depreciatedAt(accumulated, cost, residual float64) bool {
	return accumulated >= cost-residual-roundingEpsilon/2
}
