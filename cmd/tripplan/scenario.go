package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/tripplan/pkg/tripplan"
	"github.com/randalmurphal/tripplan/pkg/tripplan/operation"
	"github.com/randalmurphal/tripplan/pkg/tripplan/scoring"
)

// scenario is a traveller and the destinations to score, as read from a
// YAML file:
//
//	traveller:
//	  name: Ana
//	  email: ana@example.com
//	preferences:
//	  climate: temperate
//	  interests: [cultural]
//	profile:
//	  travel_style: backpacker
//	candidates:
//	  - destination: Madrid
//	    days: 5
type scenario struct {
	Traveller   traveller           `yaml:"traveller"`
	Preferences scoring.Preferences `yaml:"preferences"`
	Profile     scoring.Profile     `yaml:"profile"`
	Candidates  []scoring.Candidate `yaml:"candidates"`
}

type traveller struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

func loadScenario(path string) (*scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*scenario, error) {
	var s scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Candidates) == 0 {
		return nil, errors.New("scenario has no candidates")
	}
	if s.Traveller.Name == "" {
		s.Traveller.Name = "Traveller"
	}
	if s.Traveller.Email == "" {
		s.Traveller.Email = "traveller@example.com"
	}
	return &s, nil
}

// seed stores the traveller with their preferences and profile through
// planner operations, and returns the new user id.
func (s *scenario) seed(ctx context.Context, p *tripplan.Planner) (string, error) {
	op, err := p.Execute(ctx, operation.UserCreate, map[string]any{
		"name":  s.Traveller.Name,
		"email": s.Traveller.Email,
	})
	if err != nil {
		return "", err
	}
	userID := op.Entity().EntityID()

	prefs := []struct{ typ, value string }{
		{scoring.PrefClimate, s.Preferences.Climate},
		{scoring.PrefBudget, s.Preferences.Budget},
		{scoring.PrefAccommodation, s.Preferences.Accommodation},
		{scoring.PrefInterests, strings.Join(s.Preferences.Interests, ",")},
	}
	for _, pref := range prefs {
		if pref.value == "" {
			continue
		}
		if _, err := p.Execute(ctx, operation.ItemAdd, map[string]any{
			operation.FieldItemType: "preference",
			operation.FieldUserID:   userID,
			"preference_type":       pref.typ,
			"value":                 pref.value,
			"weight":                1,
		}); err != nil {
			return "", err
		}
	}

	if hasProfile(s.Profile) {
		payload := map[string]any{
			operation.FieldItemType: "profile",
			operation.FieldUserID:   userID,
			"profile_name":          s.Traveller.Name,
		}
		for k, v := range map[string]string{
			"travel_style":        s.Profile.TravelStyle,
			"budget_range":        s.Profile.BudgetRange,
			"climate_preference":  s.Profile.ClimatePreference,
			"accommodation_style": s.Profile.AccommodationStyle,
			"interests":           strings.Join(s.Profile.Interests, ","),
		} {
			if v != "" {
				payload[k] = v
			}
		}
		if _, err := p.Execute(ctx, operation.ItemAdd, payload); err != nil {
			return "", err
		}
	}
	return userID, nil
}

func hasProfile(p scoring.Profile) bool {
	return p.TravelStyle != "" || p.BudgetRange != "" || p.ClimatePreference != "" ||
		p.AccommodationStyle != "" || len(p.Interests) > 0
}
