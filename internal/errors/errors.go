// internal/errors/errors.go
package appErrors

import (
	"fmt"
	"strings"
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrInvalidCampaignState signals a transition or run attempted from a
// status that does not allow it.
type ErrInvalidCampaignState struct {
	CampaignID int
	Status     string
	Wanted     string
}

func (e *ErrInvalidCampaignState) Error() string {
	return fmt.Sprintf("campaign %d is %s, wanted %s", e.CampaignID, e.Status, e.Wanted)
}

func NewInvalidCampaignState(id int, status, wanted string) error {
	return &ErrInvalidCampaignState{CampaignID: id, Status: status, Wanted: wanted}
}

// ErrNoTargets signals activation or a run over a campaign with no eligible targets.
type ErrNoTargets struct {
	CampaignID int
}

func (e *ErrNoTargets) Error() string {
	return fmt.Sprintf("campaign %d has no eligible targets", e.CampaignID)
}

func NewNoTargets(id int) error {
	return &ErrNoTargets{CampaignID: id}
}

// ErrInvalidTemplate carries the individual validation failures.
type ErrInvalidTemplate struct {
	Problems []string
}

func (e *ErrInvalidTemplate) Error() string {
	return "invalid message template: " + strings.Join(e.Problems, ", ")
}

func NewInvalidTemplate(problems []string) error {
	return &ErrInvalidTemplate{Problems: problems}
}

// ErrAccountNotSendable signals the campaign's sending identity is missing,
// disconnected or has no stored credentials.
type ErrAccountNotSendable struct {
	AccountID int
}

func (e *ErrAccountNotSendable) Error() string {
	return fmt.Sprintf("account %d has no valid authenticated channel", e.AccountID)
}

func NewAccountNotSendable(id int) error {
	return &ErrAccountNotSendable{AccountID: id}
}

// ErrRunInProgress signals a second run was attempted against a sending
// identity that already has an active run.
type ErrRunInProgress struct {
	AccountID int
}

func (e *ErrRunInProgress) Error() string {
	return fmt.Sprintf("account %d already has a run in progress", e.AccountID)
}

func NewRunInProgress(accountID int) error {
	return &ErrRunInProgress{AccountID: accountID}
}
