package ratelimit

import (
	"sync"
	"time"
)

// Budget is a local mirror of a metered API token account. The provider
// refills tokens at a fixed per-minute rate and charges a fixed cost per
// request; mirroring that locally lets callers skip a remote balance check
// when the mirror already shows enough headroom.
type Budget struct {
	tokens     int
	maxTokens  int
	reserve    int
	refillRate time.Duration

	mu         sync.Mutex
	lastRefill time.Time
	synced     bool
}

// NewBudget creates a budget mirror.
// maxTokens: the account's token ceiling
// refillPerMinute: tokens the provider adds per minute
// reserve: the floor below which spending is refused even when the balance
// covers the cost, matching the provider-side low-balance policy
func NewBudget(maxTokens, refillPerMinute, reserve int) *Budget {
	return &Budget{
		tokens:     0,
		maxTokens:  maxTokens,
		reserve:    reserve,
		refillRate: time.Minute / time.Duration(refillPerMinute),
		lastRefill: time.Now(),
	}
}

// Sync reconciles the mirror with a balance the provider reported.
func (b *Budget) Sync(tokensLeft int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if tokensLeft > b.maxTokens {
		tokensLeft = b.maxTokens
	}
	b.tokens = tokensLeft
	b.lastRefill = time.Now()
	b.synced = true
}

// Spend consumes cost tokens from the mirror if the balance covers both the
// cost and the reserve floor. Returns false when the mirror is unsynced or
// short; the caller should then fall back to a remote balance check.
func (b *Budget) Spend(cost int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.synced {
		return false
	}

	b.refill()

	if b.tokens >= cost && b.tokens >= b.reserve {
		b.tokens -= cost
		return true
	}
	return false
}

// Synced reports whether the mirror has reconciled with the provider at
// least once, meaning a Spend refusal reflects a real shortfall.
func (b *Budget) Synced() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.synced
}

// TokensAvailable returns the mirrored balance after refill accounting.
func (b *Budget) TokensAvailable() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens
}

// WaitEstimate returns how long until the balance reaches cost tokens,
// assuming no other spender.
func (b *Budget) WaitEstimate(cost int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()

	if b.tokens >= cost {
		return 0
	}
	return time.Duration(cost-b.tokens) * b.refillRate
}

// refill adds tokens based on elapsed time. Must be called with mutex held.
func (b *Budget) refill() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill)

	tokensToAdd := int(elapsed / b.refillRate)
	if tokensToAdd > 0 {
		b.tokens = min(b.maxTokens, b.tokens+tokensToAdd)
		b.lastRefill = now
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
