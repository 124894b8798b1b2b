// Package fifo allocates sales against batches in expiration order and audits
// caller-chosen batches against that order.
package fifo

import (
	"cmp"
	"slices"

	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
)

// Compare orders batches: dated before undated, earlier expiration first,
// then lower batch ID.
func Compare(a, b domain.BatchStock) int {
	switch {
	case a.ExpirationDate != nil && b.ExpirationDate == nil:
		return -1
	case a.ExpirationDate == nil && b.ExpirationDate != nil:
		return 1
	case a.ExpirationDate != nil && b.ExpirationDate != nil:
		if c := a.ExpirationDate.Compare(*b.ExpirationDate); c != 0 {
			return c
		}
	}
	return cmp.Compare(a.BatchID, b.BatchID)
}

// Order sorts candidates in place and drops entries with no quantity left.
func Order(candidates []domain.BatchStock) []domain.BatchStock {
	candidates = slices.DeleteFunc(candidates, func(c domain.BatchStock) bool { return c.Quantity <= 0 })
	slices.SortFunc(candidates, Compare)
	return candidates
}
