package testutil

import (
	"context"
	"testing"
	"time"

	"wl-portal/internal/models"
	"wl-portal/internal/policy"
	"wl-portal/internal/repository"
)

// Applicant returns a guild member with the given id
func Applicant(id string) models.Applicant {
	return models.Applicant{ID: id, DisplayName: "Applicant " + id, InGuild: true}
}

// Staff returns a staff identity with the given id
func Staff(id string) models.Applicant {
	return models.Applicant{ID: id, DisplayName: "Staff " + id, InGuild: true}
}

// ValidAnswers returns a questionnaire that passes validation
func ValidAnswers() models.Answers {
	return models.Answers{
		OOCAge:                  "19",
		SteamLink:               "https://steamcommunity.com/id/fixture",
		WhatIsRP:                "Playing a character with its own story",
		MeDoUsage:               "/me describes actions, /do the scene",
		FairPlay:                "Playing so everyone has fun",
		PGAndMG:                 "Forcing actions and using outside info",
		PoliceRobberyReaction:   "Stay in character and comply",
		VDMResponse:             "Finish the scene then open a ticket",
		KidnapDisconnect:        "Return and tell the other party",
		MinPoliceBankRobbery:    "4",
		MilitaryBaseRobberyPlan: "Scout first and accept the outcome",
		SlashedTiresCase:        "Call a tow truck in character",
		PlannedRole:             "Taxi driver",
		RoleplayExperience:      "Some months on community servers",
		CharacterBackstory:      "Moved to the city after college",
	}
}

// Judgments marks every question correct except the listed keys
func Judgments(wrong ...string) map[string]*bool {
	out := make(map[string]*bool, len(policy.Questions))
	for _, q := range policy.Questions {
		v := true
		out[q.Key] = &v
	}
	for _, key := range wrong {
		f := false
		out[key] = &f
	}
	return out
}

// CreatePending inserts a pending application directly through the repository
func CreatePending(t *testing.T, repo *repository.ApplicationRepository, a models.Applicant, failCount int) *models.Application {
	t.Helper()

	app := &models.Application{
		ApplicantID:     a.ID,
		ApplicantName:   a.DisplayName,
		DisplayIdentity: a.DisplayIdentity(),
		Answers:         ValidAnswers(),
		Status:          models.StatusPending,
		FailCount:       failCount,
		CreatedAt:       time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), app); err != nil {
		t.Fatalf("Failed to create application: %v", err)
	}
	return app
}
