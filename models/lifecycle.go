package models

import (
	"errors"
	"fmt"
)

type ReviewStatus string

const (
	StatusPending   ReviewStatus = "Pending"
	StatusApproved  ReviewStatus = "Approved"
	StatusRejected  ReviewStatus = "Rejected"
	StatusPublished ReviewStatus = "Published"
	StatusUploaded  ReviewStatus = "Uploaded"
)

// ErrInvalidTransition is returned when a status change would move a record
// backwards or out of a terminal state.
var ErrInvalidTransition = errors.New("invalid review status transition")

// forward lists the states reachable from each state. Pending -> Pending is
// allowed so the operator can save edits without deciding.
var forward = map[ReviewStatus][]ReviewStatus{
	StatusPending:   {StatusPending, StatusApproved, StatusRejected},
	StatusApproved:  {StatusPublished, StatusUploaded},
	StatusPublished: {StatusUploaded},
}

// CanTransition reports whether a record in state from may move to state to.
func CanTransition(from, to ReviewStatus) bool {
	for _, next := range forward[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition is CanTransition returning a wrapped ErrInvalidTransition.
func CheckTransition(id uint, from, to ReviewStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("record %d: %s -> %s: %w", id, from, to, ErrInvalidTransition)
	}
	return nil
}

// IsTerminal reports whether no further transitions are possible.
func (s ReviewStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusUploaded
}

// Ptr returns the status as a *string suitable for the Review_Status column.
func (s ReviewStatus) Ptr() *string {
	v := string(s)
	return &v
}
