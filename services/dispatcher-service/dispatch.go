package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"resolveit/services/case-service/models"
)

// desks maps a case category to the mediation desk that triages it.
var desks = map[string]string{
	models.CategoryFamily.String():   "family-mediation",
	models.CategoryBusiness.String(): "commercial-mediation",
	models.CategoryCriminal.String(): "criminal-liaison",
}

const fallbackDesk = "general-intake"

// Dispatch is what the dispatcher decided to do with one event.
type Dispatch struct {
	Desk   string
	Notify string
	Event  models.CaseEvent
}

// decide turns a raw delivery body into a dispatch. New cases go to the desk
// for their category; updates notify the case owner.
func decide(body []byte) (Dispatch, error) {
	var event models.CaseEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return Dispatch{}, fmt.Errorf("decode case event: %w", err)
	}
	if event.CaseID == "" {
		return Dispatch{}, errors.New("case event without case id")
	}

	switch event.Type {
	case models.EventCaseRegistered:
		desk, ok := desks[event.Category]
		if !ok {
			desk = fallbackDesk
		}
		return Dispatch{Desk: desk, Event: event}, nil
	case models.EventCaseUpdated:
		return Dispatch{Notify: event.OwnerID, Event: event}, nil
	default:
		return Dispatch{}, fmt.Errorf("unknown case event type %q", event.Type)
	}
}
