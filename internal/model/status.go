package model

import (
	"fmt"
	"strings"
)

// Status is the primary workflow state of a supply request.  Every
// request starts as StatusPending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusOrdered   Status = "ordered"
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
	StatusCanceled  Status = "canceled"
)

// ParseStatus normalizes s and returns the matching Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusOrdered, StatusDelivered, StatusRejected, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("status %q: %w", s, ErrInvalidValue)
}

// Label is the display text for the status badge.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApproved:
		return "Approved"
	case StatusOrdered:
		return "Ordered"
	case StatusDelivered:
		return "Delivered"
	case StatusRejected:
		return "Rejected"
	case StatusCanceled:
		return "Canceled"
	}
	return string(s)
}

func (s Status) String() string { return string(s) }

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s), nil }

// OwnerStatus is the escalation annotation recorded next to Status.
// It only moves none -> pending -> approved|rejected.
type OwnerStatus string

const (
	OwnerNone     OwnerStatus = "none"
	OwnerPending  OwnerStatus = "pending"
	OwnerApproved OwnerStatus = "approved"
	OwnerRejected OwnerStatus = "rejected"
)

// ParseOwnerStatus normalizes s.  An empty string is read as OwnerNone
// because services omit the field on requests that were never escalated.
func ParseOwnerStatus(s string) (OwnerStatus, error) {
	v := OwnerStatus(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case "":
		return OwnerNone, nil
	case OwnerNone, OwnerPending, OwnerApproved, OwnerRejected:
		return v, nil
	}
	return "", fmt.Errorf("owner status %q: %w", s, ErrInvalidValue)
}

// Decided reports whether the owner already recorded a verdict.
func (o OwnerStatus) Decided() bool { return o == OwnerApproved || o == OwnerRejected }

func (o OwnerStatus) Label() string {
	switch o {
	case OwnerPending:
		return "Owner: Pending"
	case OwnerApproved:
		return "Owner: Approved"
	case OwnerRejected:
		return "Owner: Rejected"
	}
	return "Owner: None"
}

func (o OwnerStatus) String() string { return string(o) }

func (o *OwnerStatus) UnmarshalText(b []byte) error {
	v, err := ParseOwnerStatus(string(b))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func (o OwnerStatus) MarshalText() ([]byte, error) { return []byte(o), nil }
