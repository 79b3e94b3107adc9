package entitlement

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/export"
)

// Policy error codes.
const (
	CodeSubscriptionExpired = "SUBSCRIPTION_EXPIRED"
	CodeTrialExpired        = "TRIAL_EXPIRED"
	CodeLimitExceeded       = "LIMIT_EXCEEDED"
	CodeStorageExceeded     = "STORAGE_EXCEEDED"
	CodeResolutionExceeded  = "RESOLUTION_EXCEEDED"
	CodeInvalidSubscription = "INVALID_SUBSCRIPTION"
)

// PolicyError is a denial of a gated action. Upgrading the plan or freeing
// resources may lift it.
type PolicyError struct {
	Code   string
	Action Action
	Detail string
}

func (e *PolicyError) Error() string {
	msg := fmt.Sprintf("%s denied: %s", e.Action, e.Code)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches another *PolicyError with the same code.
func (e *PolicyError) Is(target error) bool {
	t, ok := target.(*PolicyError)
	return ok && t.Code == e.Code
}

var (
	ErrSubscriptionExpired = &PolicyError{Code: CodeSubscriptionExpired}
	ErrTrialExpired        = &PolicyError{Code: CodeTrialExpired}
	ErrLimitExceeded       = &PolicyError{Code: CodeLimitExceeded}
	ErrStorageExceeded     = &PolicyError{Code: CodeStorageExceeded}
	ErrResolutionExceeded  = &PolicyError{Code: CodeResolutionExceeded}
	ErrInvalidSubscription = &PolicyError{Code: CodeInvalidSubscription}
)

// Context carries the action-specific quantities checked against limits.
type Context struct {
	ProjectCount   int
	RequestedBytes int64
	Resolution     export.Resolution
}

// LimitsFunc resolves the limits for a plan.
type LimitsFunc func(Plan) PlanLimits

// Gate evaluates entitlement policy.
type Gate struct {
	limits LimitsFunc
	now    func() time.Time
}

// NewGate returns a gate using limits, or DefaultLimits if nil.
func NewGate(limits LimitsFunc) *Gate {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Gate{limits: limits, now: time.Now}
}

// WithClock replaces the gate's time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Limits returns the limits applied to plan.
func (g *Gate) Limits(plan Plan) PlanLimits {
	return g.limits(plan)
}

// Authorize checks, in order, that the subscription has not expired, that
// a trial has not run out and that the action fits the plan's quota. The
// first failing check is returned as a *PolicyError.
func (g *Gate) Authorize(u User, action Action, c Context) error {
	if u.ID == "" {
		return &PolicyError{Code: CodeInvalidSubscription, Action: action, Detail: "user not found"}
	}
	now := g.now()

	if subscriptionExpired(u, now) {
		return &PolicyError{Code: CodeSubscriptionExpired, Action: action,
			Detail: "your subscription has expired, upgrade to continue"}
	}
	if u.Status == StatusTrial && u.TrialEnd != nil && now.After(*u.TrialEnd) {
		return &PolicyError{Code: CodeTrialExpired, Action: action,
			Detail: fmt.Sprintf("trial ended %s", humanize.RelTime(*u.TrialEnd, now, "ago", "from now"))}
	}

	limits := g.limits(u.EffectivePlan())
	switch action {
	case ActionCreateProject:
		if limits.MaxProjects != Unlimited && c.ProjectCount >= limits.MaxProjects {
			return &PolicyError{Code: CodeLimitExceeded, Action: action,
				Detail: fmt.Sprintf("project limit reached (%d projects)", limits.MaxProjects)}
		}
	case ActionUploadMedia:
		if c.RequestedBytes < 0 {
			return &PolicyError{Code: CodeStorageExceeded, Action: action, Detail: "negative upload size"}
		}
		if u.StorageUsed+c.RequestedBytes > limits.StorageBytes {
			return &PolicyError{Code: CodeStorageExceeded, Action: action,
				Detail: fmt.Sprintf("%s used + %s requested exceeds %s",
					humanize.IBytes(uint64(u.StorageUsed)), humanize.IBytes(uint64(c.RequestedBytes)),
					humanize.IBytes(uint64(limits.StorageBytes)))}
		}
	case ActionExport:
		if c.Resolution != "" && limits.MaxResolution != "" && c.Resolution.Exceeds(limits.MaxResolution) {
			return &PolicyError{Code: CodeResolutionExceeded, Action: action,
				Detail: fmt.Sprintf("%s exceeds plan maximum %s", c.Resolution, limits.MaxResolution)}
		}
	default:
		return &PolicyError{Code: CodeInvalidSubscription, Action: action, Detail: "unknown action"}
	}
	return nil
}

// subscriptionExpired treats an EXPIRED status, or a lapsed end date on a
// paid subscription, as expired.
func subscriptionExpired(u User, now time.Time) bool {
	if u.Status == StatusExpired {
		return true
	}
	return u.Status != StatusTrial && u.SubscriptionEnd != nil && now.After(*u.SubscriptionEnd)
}
