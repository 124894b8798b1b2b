package domain

import "strings"

// Priority ranks replenishment list items.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRanks = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// Rank orders priorities high < medium < low; unknown values sort last.
func (p Priority) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}

	return len(priorityRanks)
}

// ParsePriority returns the priority for a given label (case-insensitive).
func ParsePriority(label string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(label)))
	_, ok := priorityRanks[p]

	return p, ok
}

// ListStatus is the lifecycle state of a replenishment list.
type ListStatus string

const (
	ListDraft     ListStatus = "draft"
	ListCompleted ListStatus = "completed"
	ListCancelled ListStatus = "cancelled"
)

var listStatusLabels = map[ListStatus]string{
	ListDraft:     "Draft",
	ListCompleted: "Completed",
	ListCancelled: "Cancelled",
}

// Label returns a human-readable label for a list status.
func (s ListStatus) Label() string {
	if label, ok := listStatusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// Terminal reports whether no further transitions are allowed.
func (s ListStatus) Terminal() bool {
	return s == ListCompleted || s == ListCancelled
}

// CanTransition reports whether a list may move from s to next.
func (s ListStatus) CanTransition(next ListStatus) bool {
	return s == ListDraft && next.Terminal()
}

// ParseListStatus returns the status code for a given label (case-insensitive).
func ParseListStatus(label string) (ListStatus, bool) {
	s := ListStatus(strings.ToLower(strings.TrimSpace(label)))
	_, ok := listStatusLabels[s]

	return s, ok
}

// StockStatus classifies current quantity against the reorder level.
type StockStatus string

const (
	StockCritical StockStatus = "Critical"
	StockLow      StockStatus = "Low"
	StockStable   StockStatus = "Stable"
)

// Replenishment reasons recorded on generated list items.
const (
	ReasonOutOfStockAndDue = "Out of stock & Frequency due"
	ReasonOutOfStock       = "Out of stock"
	ReasonFrequencyDue     = "Frequency due"
)
