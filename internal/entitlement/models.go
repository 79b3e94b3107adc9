// Package entitlement decides whether a user's subscription allows a gated
// action. It reads user and plan data but never mutates them.
package entitlement

import (
	"math"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
)

// SubscriptionStatus is the billing state of a user.
type SubscriptionStatus string

const (
	StatusTrial     SubscriptionStatus = "TRIAL"
	StatusActive    SubscriptionStatus = "ACTIVE"
	StatusExpired   SubscriptionStatus = "EXPIRED"
	StatusCancelled SubscriptionStatus = "CANCELLED"
	StatusPastDue   SubscriptionStatus = "PAST_DUE"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanBasic Plan = "BASIC"
	PlanPro   Plan = "PRO"
)

// Role is a user's account role.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
	RoleOwner Role = "OWNER"
)

// Action is a gated operation.
type Action string

const (
	ActionCreateProject Action = "create_project"
	ActionUploadMedia   Action = "upload_media"
	ActionExport        Action = "export"
)

// Unlimited marks a plan limit with no cap.
const Unlimited = -1

const gib = 1 << 30

// User is the subset of account data the gate consults.
type User struct {
	ID              string             `json:"id"`
	Email           string             `json:"email,omitempty"`
	FullName        string             `json:"full_name,omitempty"`
	Role            Role               `json:"role"`
	Status          SubscriptionStatus `json:"subscription_status"`
	Plan            Plan               `json:"subscription_plan,omitempty"`
	TrialEnd        *time.Time         `json:"trial_end_date,omitempty"`
	SubscriptionEnd *time.Time         `json:"subscription_end_date,omitempty"`
	StorageUsed     int64              `json:"storage_used"`
}

// EffectivePlan returns the user's plan, defaulting to BASIC.
func (u User) EffectivePlan() Plan {
	if u.Plan == "" {
		return PlanBasic
	}
	return u.Plan
}

// PlanLimits are the quotas and features of a plan.
type PlanLimits struct {
	StorageBytes  int64             `json:"storage_bytes" toml:"storage_bytes"`
	MaxProjects   int               `json:"max_projects" toml:"max_projects"`
	MaxResolution export.Resolution `json:"max_resolution" toml:"max_resolution"`
	Watermark     bool              `json:"watermark_enabled" toml:"watermark"`
	Collaboration bool              `json:"collaboration_enabled" toml:"collaboration"`
	ARFilters     bool              `json:"ar_filters_enabled" toml:"ar_filters"`
}

// DefaultLimits returns the built-in limits for plan. Unknown plans get
// BASIC limits.
func DefaultLimits(plan Plan) PlanLimits {
	if plan == PlanPro {
		return PlanLimits{
			StorageBytes:  25 * gib,
			MaxProjects:   Unlimited,
			MaxResolution: export.Resolution4K,
			Collaboration: true,
			ARFilters:     true,
		}
	}
	return PlanLimits{
		StorageBytes:  5 * gib,
		MaxProjects:   10,
		MaxResolution: export.Resolution1080p,
		Watermark:     true,
	}
}

// TrialDaysRemaining returns the whole days left in a trial, rounded up,
// or 0 for users not on a trial.
func TrialDaysRemaining(u User, now time.Time) int {
	if u.Status != StatusTrial || u.TrialEnd == nil {
		return 0
	}
	days := int(math.Ceil(u.TrialEnd.Sub(now).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}

// StorageUsagePercent returns storage used as a percentage of the cap.
func StorageUsagePercent(u User, limits PlanLimits) float64 {
	if limits.StorageBytes <= 0 {
		return 0
	}
	return float64(u.StorageUsed) / float64(limits.StorageBytes) * 100
}

func ShouldWatermark(limits PlanLimits) bool     { return limits.Watermark }
func CanUseCollaboration(limits PlanLimits) bool { return limits.Collaboration }
func CanUseARFilters(limits PlanLimits) bool     { return limits.ARFilters }
