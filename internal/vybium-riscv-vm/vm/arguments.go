package vm

import (
	"fmt"

	"github.com/vybium/vybium-crypto/pkg/vybium-crypto/field"
)

// Challenge-parameterized argument helpers for the external backend.
// The lookup builder itself is challenge-free; once the verifier samples
// challenges, these compute the accumulator columns over the committed
// symbols.

// CompressTuple folds a multi-column tuple into a single field element
// with Horner evaluation at the tuple challenge:
// alpha^(n-1)*t[0] + ... + alpha*t[n-2] + t[n-1]
func CompressTuple(tuple []field.Element, alpha field.Element) (field.Element, error) {
	if len(tuple) == 0 {
		return field.Zero, fmt.Errorf("tuple cannot be empty")
	}

	compressed := tuple[0]
	for _, value := range tuple[1:] {
		compressed = alpha.Mul(compressed).Add(value)
	}
	return compressed, nil
}

// ComputeRunningProduct computes the permutation accumulator:
// RP[i] = RP[i-1] * (challenge - symbols[i]), seeded with the initial
// value. Two tables hold the same multiset exactly when their terminal
// products agree.
func ComputeRunningProduct(symbols []field.Element, initial, challenge field.Element) ([]field.Element, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols cannot be empty")
	}

	runningProduct := make([]field.Element, len(symbols))
	acc := initial
	for i, symbol := range symbols {
		acc = acc.Mul(challenge.Sub(symbol))
		runningProduct[i] = acc
	}
	return runningProduct, nil
}

// ComputeRunningEvaluation computes the evaluation accumulator:
// RE[i] = challenge * RE[i-1] + symbols[i]
func ComputeRunningEvaluation(symbols []field.Element, initial, challenge field.Element) ([]field.Element, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols cannot be empty")
	}

	runningEval := make([]field.Element, len(symbols))
	acc := initial
	for i, symbol := range symbols {
		acc = challenge.Mul(acc).Add(symbol)
		runningEval[i] = acc
	}
	return runningEval, nil
}

// ComputeLogDerivative computes the lookup accumulator:
// LD[i] = LD[i-1] + m[i] / (challenge - symbols[i]). A nil multiplicity
// slice weights every term with 1 (the looking side); the looked side
// passes its multiplicity column. The challenge must avoid every symbol.
func ComputeLogDerivative(symbols []field.Element, multiplicities []field.Element, challenge field.Element) ([]field.Element, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("symbols cannot be empty")
	}
	if multiplicities != nil && len(multiplicities) != len(symbols) {
		return nil, fmt.Errorf("multiplicities length %d does not match symbols length %d",
			len(multiplicities), len(symbols))
	}

	logDerivative := make([]field.Element, len(symbols))
	acc := field.Zero
	for i, symbol := range symbols {
		denominator := challenge.Sub(symbol)
		if denominator.IsZero() {
			return nil, fmt.Errorf("challenge collides with symbol at row %d", i)
		}

		term := denominator.Inverse()
		if multiplicities != nil {
			term = multiplicities[i].Mul(term)
		}
		acc = acc.Add(term)
		logDerivative[i] = acc
	}
	return logDerivative, nil
}

// CheckLogDerivativeBalance verifies the lookup identity
// sum 1/(challenge - looking[i]) == sum m[j]/(challenge - looked[j])
// over the given symbols, the check the backend performs per pair after
// sampling its challenge.
func CheckLogDerivativeBalance(looking, looked, multiplicities []field.Element, challenge field.Element) (bool, error) {
	lookingSum := field.Zero
	if len(looking) > 0 {
		ld, err := ComputeLogDerivative(looking, nil, challenge)
		if err != nil {
			return false, fmt.Errorf("looking side: %w", err)
		}
		lookingSum = ld[len(ld)-1]
	}

	lookedSum := field.Zero
	if len(looked) > 0 {
		ld, err := ComputeLogDerivative(looked, multiplicities, challenge)
		if err != nil {
			return false, fmt.Errorf("looked side: %w", err)
		}
		lookedSum = ld[len(ld)-1]
	}

	return lookingSum.Equal(lookedSum), nil
}
