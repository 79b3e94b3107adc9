package cloud

import (
	"context"
	"log/slog"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
)

// StubAuth serves a fixed local user when no backend is configured.
type StubAuth struct {
	user   entitlement.User
	logger *slog.Logger
}

func NewStubAuth(user entitlement.User, logger *slog.Logger) *StubAuth {
	return &StubAuth{user: user, logger: logger}
}

func (s *StubAuth) CurrentUser(ctx context.Context) (entitlement.User, error) {
	if s.logger != nil {
		s.logger.Debug("cloud auth stub: current user requested", "user_id", s.user.ID)
	}
	return s.user, nil
}

func (s *StubAuth) PlanLimits(ctx context.Context, plan entitlement.Plan) (entitlement.PlanLimits, error) {
	return entitlement.DefaultLimits(plan), nil
}

func (s *StubAuth) SubscriptionStatus(ctx context.Context, userID string) (entitlement.SubscriptionStatus, error) {
	if userID != s.user.ID {
		return "", ErrNotFound
	}
	return s.user.Status, nil
}

// InvokeFunction always fails; there are no backend functions offline.
func (s *StubAuth) InvokeFunction(ctx context.Context, name string, body, out any) error {
	if s.logger != nil {
		s.logger.Info("cloud stub: function invocation requested", "function", name)
	}
	return ErrOffline
}
