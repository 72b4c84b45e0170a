package stability

// RetryBudget bounds the position-sync retries of one movement cycle. When
// the budget is exhausted the caller force-passes and logs a degraded
// decision instead of retrying forever.
type RetryBudget struct {
	used int
	max  int
}

// NewRetryBudget creates a budget allowing max retries per cycle.
func NewRetryBudget(max int) *RetryBudget {
	return &RetryBudget{max: max}
}

// Spend consumes one retry. It returns false once the budget is exhausted;
// the failing Spend itself is the signal to stop retrying.
func (b *RetryBudget) Spend() bool {
	if b.used >= b.max {
		return false
	}
	b.used++
	return true
}

// Used returns how many retries this cycle consumed.
func (b *RetryBudget) Used() int { return b.used }

// Exhausted reports whether no retries remain.
func (b *RetryBudget) Exhausted() bool { return b.used >= b.max }

// Reset starts a new movement cycle.
func (b *RetryBudget) Reset() { b.used = 0 }
