package wallet

// Pure balance checks. Every money-moving path must pass through these
// before mutating; they fail closed on non-positive amounts.

// CanDebit reports whether amountCents can be taken from balanceCents
// without going negative.
func CanDebit(balanceCents, amountCents int64) bool {
	if amountCents <= 0 {
		return false
	}
	return balanceCents-amountCents >= 0
}

// CanCredit reports whether amountCents is a valid credit.
func CanCredit(amountCents int64) bool {
	return amountCents > 0
}
