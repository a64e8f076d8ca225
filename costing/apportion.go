/*
apportion.go - Exact splitting of money across weighted shares

PURPOSE:
  Splits a total amount across weighted shares so the parts sum exactly to
  the whole. Used whenever a single measured cost pool (e.g. a shared
  attendance-derived total) must be divided across SubTasks by quantity.

ALGORITHM (largest remainder / Hamilton):
  1. Round the total to cents
  2. Compute each raw share in cents: total * weight / sumWeights
  3. Truncate each share toward zero
  4. Distribute the leftover cents one at a time to the shares with the
     largest fractional remainder; ties go to the first-listed weight

  The result is deterministic, reproducible, and free of floating-point
  leftover: sum(shares) == total to the cent, always.

FAILURE MODE:
  A zero or negative total weight indicates an upstream data error and
  fails loudly with InvalidWeights. The apportioner never guesses.
*/
package costing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Apportion splits total across weights proportionally, rounded to cents,
// such that the shares sum exactly to total. Each share's sign matches the
// total's sign. Returns InvalidWeights for an empty list, a negative
// weight, or a zero weight sum.
func Apportion(total Money, weights []decimal.Decimal) ([]Money, error) {
	if len(weights) == 0 {
		return nil, &InvalidWeightsError{Index: -1, Reason: "no weights"}
	}

	sumWeights := decimal.Zero
	for i, w := range weights {
		if w.IsNegative() {
			return nil, &InvalidWeightsError{Index: i, Weight: w, Reason: "negative weight"}
		}
		sumWeights = sumWeights.Add(w)
	}
	if sumWeights.IsZero() {
		return nil, &InvalidWeightsError{Index: -1, Reason: "weights sum to zero"}
	}

	totalCents := total.Cents()
	totalDec := decimal.NewFromInt(totalCents)

	cents := make([]int64, len(weights))
	fractions := make([]decimal.Decimal, len(weights))
	var allocated int64
	for i, w := range weights {
		raw := totalDec.Mul(w).Div(sumWeights)
		cents[i] = raw.IntPart() // truncates toward zero
		fractions[i] = raw.Sub(decimal.NewFromInt(cents[i])).Abs()
		allocated += cents[i]
	}

	// Distribute the residual cents to the largest fractional remainders,
	// first-listed weight winning ties.
	residual := totalCents - allocated
	step := int64(1)
	if residual < 0 {
		step = -1
		residual = -residual
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fractions[order[a]].GreaterThan(fractions[order[b]])
	})

	for k := int64(0); k < residual; k++ {
		cents[order[k%int64(len(order))]] += step
	}

	shares := make([]Money, len(weights))
	for i, c := range cents {
		shares[i] = NewMoneyFromCents(c)
	}
	return shares, nil
}

// ApportionByQuantity splits total across integer quantity shares.
// Convenience wrapper for the common SubTask case.
func ApportionByQuantity(total Money, quantities []int) ([]Money, error) {
	weights := make([]decimal.Decimal, len(quantities))
	for i, q := range quantities {
		weights[i] = decimal.NewFromInt(int64(q))
	}
	return Apportion(total, weights)
}
