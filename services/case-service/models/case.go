package models

import (
	"fmt"
	"time"
)

// Category is the kind of dispute filed.
type Category int

const (
	CategoryFamily   Category = 0
	CategoryBusiness Category = 1
	CategoryCriminal Category = 2
)

func ParseCategory(n int) (Category, error) {
	c := Category(n)
	if !c.Valid() {
		return 0, fmt.Errorf("invalid case type %d", n)
	}
	return c, nil
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFamily, CategoryBusiness, CategoryCriminal:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	switch c {
	case CategoryFamily:
		return "family"
	case CategoryBusiness:
		return "business"
	case CategoryCriminal:
		return "criminal"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// OppositeStatus tracks the responding party's engagement.
type OppositeStatus int

const (
	OppositeNotStarted       OppositeStatus = 0
	OppositeAwaitingResponse OppositeStatus = 1
	OppositeAccepted         OppositeStatus = 2
)

func ParseOppositeStatus(n int) (OppositeStatus, error) {
	s := OppositeStatus(n)
	if !s.Valid() {
		return 0, fmt.Errorf("invalid opposite status %d", n)
	}
	return s, nil
}

func (s OppositeStatus) Valid() bool {
	switch s {
	case OppositeNotStarted, OppositeAwaitingResponse, OppositeAccepted:
		return true
	default:
		return false
	}
}

func (s OppositeStatus) String() string {
	switch s {
	case OppositeNotStarted:
		return "not-started"
	case OppositeAwaitingResponse:
		return "awaiting-response"
	case OppositeAccepted:
		return "accepted"
	default:
		return fmt.Sprintf("OppositeStatus(%d)", int(s))
	}
}

// Status tracks the mediation stage. Any value may follow any other; an
// admin can move a resolved case back to not-started.
type Status int

const (
	StatusNotStarted          Status = 0
	StatusPanelCreated        Status = 1
	StatusMediationInProgress Status = 2
	StatusResolved            Status = 3
	StatusUnresolved          Status = 4
)

func ParseStatus(n int) (Status, error) {
	s := Status(n)
	if !s.Valid() {
		return 0, fmt.Errorf("invalid case status %d", n)
	}
	return s, nil
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusPanelCreated, StatusMediationInProgress, StatusResolved, StatusUnresolved:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusNotStarted:
		return "not-started"
	case StatusPanelCreated:
		return "panel-created"
	case StatusMediationInProgress:
		return "mediation-in-progress"
	case StatusResolved:
		return "resolved"
	case StatusUnresolved:
		return "unresolved"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MinDescriptionLength is the shortest description a case may be filed with.
const MinDescriptionLength = 50

// Case is one dispute filed by one identity. OwnerID and ProofURI are set at
// creation and never change.
type Case struct {
	ID                   string         `json:"_id"`
	OwnerID              string         `json:"-"`
	Category             Category       `json:"caseType"`
	Description          string         `json:"description"`
	OppositePartyName    string         `json:"oppositePartyName"`
	OppositePartyContact string         `json:"oppositePartyContact"`
	OppositePartyAddress string         `json:"oppositePartyAddress"`
	IssuePendingStatus   string         `json:"issuePendingStatus"`
	ProofURI             string         `json:"proofUri"`
	VerifiedByAdmin      bool           `json:"verifiedByAdmin"`
	OppositeStatus       OppositeStatus `json:"oppositeStatus"`
	CaseStatus           Status         `json:"caseStatus"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// CaseView is a case with its owner's public profile joined in under userId.
type CaseView struct {
	Case
	Owner PublicProfile `json:"userId"`
}
