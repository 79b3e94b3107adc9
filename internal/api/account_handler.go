package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/billing"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/cloud"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
)

func usageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user, err := withUsage(ctx, cfg)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		count, err := cfg.Repo.CountProjects(ctx, user.ID)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}

		plan := user.EffectivePlan()
		limits := cfg.Gate.Limits(plan)
		WriteJSON(w, http.StatusOK, UsageResponse{
			UserID:             user.ID,
			Plan:               string(plan),
			Status:             string(user.Status),
			StorageUsed:        user.StorageUsed,
			StorageUsedHuman:   humanize.IBytes(uint64(user.StorageUsed)),
			StorageLimit:       limits.StorageBytes,
			StorageLimitHuman:  humanize.IBytes(uint64(limits.StorageBytes)),
			StoragePercent:     entitlement.StorageUsagePercent(user, limits),
			ProjectCount:       count,
			MaxProjects:        limits.MaxProjects,
			MaxResolution:      string(limits.MaxResolution),
			TrialDaysRemaining: entitlement.TrialDaysRemaining(user, time.Now()),
			Watermark:          entitlement.ShouldWatermark(limits),
			Collaboration:      entitlement.CanUseCollaboration(limits),
			ARFilters:          entitlement.CanUseARFilters(limits),
		})
	}
}

func subscribeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Billing == nil {
			writeDomainError(w, cloud.ErrOffline, cfg.Logger)
			return
		}
		var req SubscribeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		plan := entitlement.Plan(strings.ToUpper(req.Plan))
		if plan != entitlement.PlanBasic && plan != entitlement.PlanPro {
			WriteError(w, http.StatusBadRequest, "plan must be BASIC or PRO", "BAD_REQUEST")
			return
		}

		user := userFrom(r.Context())
		checkout, err := cfg.Billing.CreateSubscription(r.Context(), user.ID, plan)
		if err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		cfg.Logger.Info("subscription created", "user_id", user.ID, "plan", plan, "provider", checkout.Provider)
		WriteJSON(w, http.StatusCreated, SubscribeResponse{Checkout: checkout, Price: billing.PlanPricing(plan)})
	}
}

func unsubscribeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Billing == nil {
			writeDomainError(w, cloud.ErrOffline, cfg.Logger)
			return
		}
		if err := cfg.Billing.CancelSubscription(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err, cfg.Logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
