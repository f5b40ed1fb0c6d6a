// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign %s not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrReminderNotFound is returned when a consolidated reminder id does not exist.
type ErrReminderNotFound struct {
	ReminderID string
}

func (e *ErrReminderNotFound) Error() string {
	return fmt.Sprintf("consolidated reminder %s not found", e.ReminderID)
}

func NewReminderNotFound(id string) error {
	return &ErrReminderNotFound{ReminderID: id}
}

// ErrValidation marks a malformed request. Validation errors are rejected
// synchronously and never queued.
type ErrValidation struct {
	Msg string
}

func (e *ErrValidation) Error() string {
	return "validation: " + e.Msg
}

func NewValidation(format string, args ...any) error {
	return &ErrValidation{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ErrValidation
	return errors.As(err, &v)
}

// ErrCapacity means no provider can plausibly cover the planned send count.
// Raised before any email_send rows are created.
type ErrCapacity struct {
	Provider  string
	Requested int
	Remaining int
}

func (e *ErrCapacity) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("capacity: no provider can cover %d sends today", e.Requested)
	}
	return fmt.Sprintf("capacity: provider %s has %d of %d required sends remaining today", e.Provider, e.Remaining, e.Requested)
}

func NewCapacity(provider string, requested, remaining int) error {
	return &ErrCapacity{Provider: provider, Requested: requested, Remaining: remaining}
}

func IsCapacity(err error) bool {
	var c *ErrCapacity
	return errors.As(err, &c)
}

// ErrDuplicateReminder rejects a second open reminder for the same customer
// and invoice set. Duplicates are rejected at creation, not cleaned up after.
type ErrDuplicateReminder struct {
	CustomerID string
}

func (e *ErrDuplicateReminder) Error() string {
	return fmt.Sprintf("customer %s already has an open consolidated reminder", e.CustomerID)
}

func NewDuplicateReminder(customerID string) error {
	return &ErrDuplicateReminder{CustomerID: customerID}
}

func IsDuplicateReminder(err error) bool {
	var d *ErrDuplicateReminder
	return errors.As(err, &d)
}
