// Package types defines the core data model shared across the app builder:
// requirements documents, generated apps, and their lifecycle statuses.
package types

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequirementStatus is the lifecycle status of a requirements document.
type RequirementStatus string

// Requirement lifecycle states. Extraction moves processing → draft;
// generation outcomes move draft → completed/failed.
const (
	RequirementProcessing RequirementStatus = "processing"
	RequirementDraft      RequirementStatus = "draft"
	RequirementCompleted  RequirementStatus = "completed"
	RequirementFailed     RequirementStatus = "failed"
)

// Valid reports whether s is a known requirement status.
func (s RequirementStatus) Valid() bool {
	switch s {
	case RequirementProcessing, RequirementDraft, RequirementCompleted, RequirementFailed:
		return true
	}
	return false
}

// AppStatus is the lifecycle status of a generated app.
type AppStatus string

// App generation states. Generating is the only state in which the code
// payload may be incomplete; completed and failed are terminal for a cycle.
const (
	AppGenerating AppStatus = "generating"
	AppCompleted  AppStatus = "completed"
	AppFailed     AppStatus = "failed"
)

// Valid reports whether s is a known app status.
func (s AppStatus) Valid() bool {
	switch s {
	case AppGenerating, AppCompleted, AppFailed:
		return true
	}
	return false
}

// DefaultColorCode is used when a requirement has no theme color set.
const DefaultColorCode = "#1976d2"

var colorCodePattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidColorCode reports whether s is a 6-digit hex color like "#1976d2".
func ValidColorCode(s string) bool {
	return colorCodePattern.MatchString(s)
}

// Feature is a single extracted feature within a requirements document.
type Feature struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category,omitempty"`
	UserRole    string `json:"userRole,omitempty"`
	Hint        string `json:"hint,omitempty"`
}

// Extraction is the structured requirements extracted from the user's
// free-text prompt. It is stored as JSONB and embedded verbatim into
// generation prompts.
type Extraction struct {
	AppName               string    `json:"appName"`
	Entities              []string  `json:"entities"`
	Roles                 []string  `json:"roles"`
	Features              []Feature `json:"features" validate:"dive"`
	TechnicalRequirements []string  `json:"technicalRequirements"`
	BusinessRules         []string  `json:"businessRules"`
}

// Metadata records accounting for one AI call or generation cycle.
type Metadata struct {
	ProcessingTimeMS int64  `json:"processing_time_ms"`
	TokensUsed       int32  `json:"tokens_used"`
	Model            string `json:"model,omitempty"`
	GenerationPrompt string `json:"generation_prompt,omitempty"`
}

// Requirement is a requirements document owned by a single user.
type Requirement struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	Title      string            `json:"title"`
	Prompt     string            `json:"prompt"`
	ColorCode  string            `json:"color_code"`
	Extraction Extraction        `json:"extracted_requirements"`
	Status     RequirementStatus `json:"status"`
	Metadata   Metadata          `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// App is a generated application record. Exactly one requirement backs an
// app; regeneration overwrites the same record rather than creating a new
// one.
type App struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	RequirementID uuid.UUID `json:"requirement_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ColorCode     string    `json:"color_code"`
	Code          string    `json:"code"`
	Status        AppStatus `json:"status"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Metadata      Metadata  `json:"metadata"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

var versionSuffixPattern = regexp.MustCompile(` - V(\d+)$`)

// BumpVersion appends or increments a trailing " - V<n>" marker on an app
// name. A name with no marker becomes "<name> - V2"; "<name> - V2" becomes
// "<name> - V3", and so on. Used only for user-triggered regeneration with
// no feedback message; automatic retries never rename.
func BumpVersion(name string) string {
	m := versionSuffixPattern.FindStringSubmatch(name)
	if m == nil {
		return name + " - V2"
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return name + " - V2"
	}
	base := strings.TrimSuffix(name, m[0])
	return base + " - V" + strconv.Itoa(n+1)
}

// Truncate shortens s to at most max runes, used to derive app descriptions
// from requirement prompts.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
