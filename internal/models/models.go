package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of an application
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Audit actions
const (
	AuditActionSubmitted = "submitted"
	AuditActionApproved  = "approved"
	AuditActionRejected  = "rejected"
)

// Applicant is the identity supplied by the identity provider.
// It is never derived from request bodies.
type Applicant struct {
	ID          string `json:"applicant_id"`
	DisplayName string `json:"display_name"`
	AvatarRef   string `json:"avatar_ref,omitempty"`
	InGuild     bool   `json:"in_guild"`
}

// DisplayIdentity builds the "name (id)" composite shown to staff
func (a Applicant) DisplayIdentity() string {
	name := strings.TrimSpace(a.DisplayName)
	if name == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", name, a.ID)
}

// Application represents one questionnaire submission
type Application struct {
	ID              int64        `json:"id" db:"id"`
	ApplicantID     string       `json:"applicant_id" db:"applicant_id"`
	ApplicantName   string       `json:"applicant_name" db:"applicant_name"`
	DisplayIdentity string       `json:"display_identity" db:"display_identity"`
	Answers         Answers      `json:"answers" db:"answers"`
	Status          Status       `json:"status" db:"status"`
	Score           int          `json:"score" db:"score"`
	FailCount       int          `json:"fail_count" db:"fail_count"`
	CooldownUntil   *time.Time   `json:"cooldown_until,omitempty" db:"cooldown_until"`
	ReviewerID      *string      `json:"reviewer_id,omitempty" db:"reviewer_id"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty" db:"reviewed_at"`
	ReviewNotes     *ReviewNotes `json:"review_notes,omitempty" db:"review_notes"`
	RejectReason    *string      `json:"reject_reason,omitempty" db:"reject_reason"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// ApplicationSummary is the list view of an application (no answers, no notes)
type ApplicationSummary struct {
	ID              int64      `json:"id" db:"id"`
	ApplicantID     string     `json:"applicant_id" db:"applicant_id"`
	ApplicantName   string     `json:"applicant_name" db:"applicant_name"`
	DisplayIdentity string     `json:"display_identity" db:"display_identity"`
	Status          Status     `json:"status" db:"status"`
	Score           int        `json:"score" db:"score"`
	FailCount       int        `json:"fail_count" db:"fail_count"`
	CooldownUntil   *time.Time `json:"cooldown_until,omitempty" db:"cooldown_until"`
	ReviewerID      *string    `json:"reviewer_id,omitempty" db:"reviewer_id"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	RejectReason    *string    `json:"reject_reason,omitempty" db:"reject_reason"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Answers holds the questionnaire payload. Immutable once stored.
type Answers struct {
	OOCAge                  string `json:"ooc_age" validate:"required,uint"`
	SteamLink               string `json:"steam_link" validate:"required,max=300"`
	WhatIsRP                string `json:"what_is_rp" validate:"required,max=4000"`
	MeDoUsage               string `json:"me_do_usage" validate:"required,max=4000"`
	FairPlay                string `json:"fair_play" validate:"required,max=4000"`
	PGAndMG                 string `json:"pg_and_mg" validate:"required,max=4000"`
	PoliceRobberyReaction   string `json:"police_robbery_reaction" validate:"required,max=4000"`
	VDMResponse             string `json:"vdm_response" validate:"required,max=4000"`
	KidnapDisconnect        string `json:"kidnap_disconnect_response" validate:"required,max=4000"`
	MinPoliceBankRobbery    string `json:"min_police_bank_robbery" validate:"required,uint"`
	MilitaryBaseRobberyPlan string `json:"military_base_robbery_plan" validate:"required,max=4000"`
	SlashedTiresCase        string `json:"slashed_tires_case" validate:"required,max=4000"`
	PlannedRole             string `json:"planned_role" validate:"required,max=4000"`
	RoleplayExperience      string `json:"roleplay_experience" validate:"required,max=4000"`
	CharacterBackstory      string `json:"character_backstory" validate:"required,max=8000"`
}

// TrimSpace trims every answer in place
func (a *Answers) TrimSpace() {
	for _, key := range AnswerKeys {
		p := a.field(key)
		*p = strings.TrimSpace(*p)
	}
}

// AnswerKeys lists every answer key in questionnaire order
var AnswerKeys = []string{
	"ooc_age",
	"steam_link",
	"what_is_rp",
	"me_do_usage",
	"fair_play",
	"pg_and_mg",
	"police_robbery_reaction",
	"vdm_response",
	"kidnap_disconnect_response",
	"min_police_bank_robbery",
	"military_base_robbery_plan",
	"slashed_tires_case",
	"planned_role",
	"roleplay_experience",
	"character_backstory",
}

// NumericAnswerKeys lists the answers that hold a whole number
var NumericAnswerKeys = []string{"ooc_age", "min_police_bank_robbery"}

func (a *Answers) field(key string) *string {
	switch key {
	case "ooc_age":
		return &a.OOCAge
	case "steam_link":
		return &a.SteamLink
	case "what_is_rp":
		return &a.WhatIsRP
	case "me_do_usage":
		return &a.MeDoUsage
	case "fair_play":
		return &a.FairPlay
	case "pg_and_mg":
		return &a.PGAndMG
	case "police_robbery_reaction":
		return &a.PoliceRobberyReaction
	case "vdm_response":
		return &a.VDMResponse
	case "kidnap_disconnect_response":
		return &a.KidnapDisconnect
	case "min_police_bank_robbery":
		return &a.MinPoliceBankRobbery
	case "military_base_robbery_plan":
		return &a.MilitaryBaseRobberyPlan
	case "slashed_tires_case":
		return &a.SlashedTiresCase
	case "planned_role":
		return &a.PlannedRole
	case "roleplay_experience":
		return &a.RoleplayExperience
	case "character_backstory":
		return &a.CharacterBackstory
	}
	return nil
}

// Value implements driver.Valuer for the JSONB column
func (a Answers) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for the JSONB column
func (a *Answers) Scan(src any) error {
	return scanJSON(src, a)
}

// ReviewNotes is the write-once record of a review decision
type ReviewNotes struct {
	Judgments    map[string]bool `json:"judgments"`
	Unanswered   []string        `json:"unanswered"`
	Incorrect    []string        `json:"incorrect"`
	Notes        string          `json:"notes"`
	Score        int             `json:"score"`
	Total        int             `json:"total"`
	Pct          int             `json:"pct"`
	AuxCheck     string          `json:"aux_check"`
	Approved     bool            `json:"approved"`
	RejectReason string          `json:"reject_reason,omitempty"`
	DecidedAt    time.Time       `json:"decided_at"`
}

// Value implements driver.Valuer
func (n ReviewNotes) Value() (driver.Value, error) {
	return json.Marshal(n)
}

// Scan implements sql.Scanner
func (n *ReviewNotes) Scan(src any) error {
	return scanJSON(src, n)
}

// AuditLog represents an append-only audit entry
type AuditLog struct {
	ID            int64     `json:"id" db:"id"`
	ApplicationID int64     `json:"application_id" db:"application_id"`
	ActorID       string    `json:"actor_id" db:"actor_id"`
	Action        string    `json:"action" db:"action"`
	Reason        *string   `json:"reason,omitempty" db:"reason"`
	Meta          AuditMeta `json:"meta" db:"meta"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// AuditMeta is free-form structured metadata on an audit entry
type AuditMeta map[string]any

// Value implements driver.Valuer
func (m AuditMeta) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *AuditMeta) Scan(src any) error {
	return scanJSON(src, m)
}

func scanJSON(src any, dest any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSON column")
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
