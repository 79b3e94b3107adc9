package api

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/entitlement"
	"github.com/M-Ibrahim-WD/ALLINHERE-Studio/internal/project"
)

func TestUsage(t *testing.T) {
	trialEnd := time.Now().Add(36 * time.Hour)
	env := newTestEnv(t, entitlement.User{ID: "user-1", Status: entitlement.StatusTrial, TrialEnd: &trialEnd})
	env.addAsset("a", project.AssetVideo, floatPtr(3), 1536)
	createProject(t, env, "one")

	rr := env.do(http.MethodGet, "/account/usage", nil)
	expectStatus(t, rr, http.StatusOK)
	var usage UsageResponse
	decodeInto(t, rr, &usage)

	if usage.Plan != "BASIC" || usage.Status != "TRIAL" {
		t.Errorf("plan/status = %s/%s", usage.Plan, usage.Status)
	}
	if usage.StorageUsed != 1536 || usage.StorageUsedHuman != "1.5 KiB" {
		t.Errorf("storage used = %d (%s)", usage.StorageUsed, usage.StorageUsedHuman)
	}
	if usage.StorageLimitHuman != "5.0 GiB" || usage.MaxProjects != 10 || usage.ProjectCount != 1 {
		t.Errorf("limits = %+v", usage)
	}
	if usage.TrialDaysRemaining != 2 {
		t.Errorf("trial days = %d, want 2", usage.TrialDaysRemaining)
	}
	if !usage.Watermark || usage.Collaboration || usage.ARFilters {
		t.Errorf("basic features = %+v", usage)
	}
}

func TestUsage_ProFeatures(t *testing.T) {
	env := newTestEnv(t, activeUser(entitlement.PlanPro))
	rr := env.do(http.MethodGet, "/account/usage", nil)
	var usage UsageResponse
	decodeInto(t, rr, &usage)
	if usage.Watermark || !usage.Collaboration || !usage.ARFilters || usage.MaxProjects != entitlement.Unlimited {
		t.Errorf("pro usage = %+v", usage)
	}
}

func TestSubscribe_PayPal(t *testing.T) {
	env := newTestEnv(t, activeUser(entitlement.PlanBasic))

	rr := env.do(http.MethodPost, "/account/subscription", SubscribeRequest{Plan: "pro"})
	expectStatus(t, rr, http.StatusCreated)
	var resp SubscribeResponse
	decodeInto(t, rr, &resp)
	if resp.Provider != "paypal" || !strings.HasPrefix(resp.SubscriptionID, "mock_paypal_sub_") {
		t.Errorf("checkout = %+v", resp.Checkout)
	}
	if resp.Price.Monthly != 24.99 {
		t.Errorf("price = %+v", resp.Price)
	}

	expectErrorCode(t, env.do(http.MethodPost, "/account/subscription", SubscribeRequest{Plan: "gold"}),
		http.StatusBadRequest, "BAD_REQUEST")
	expectErrorCode(t, env.do(http.MethodDelete, "/account/subscription/"+resp.SubscriptionID, nil),
		http.StatusNotImplemented, "UNSUPPORTED")
}

func TestSubscribe_NoProvider(t *testing.T) {
	env := newTestEnv(t, activeUser(entitlement.PlanBasic))
	env.cfg.Billing = nil
	env.router = NewRouter(env.cfg)

	expectErrorCode(t, env.do(http.MethodPost, "/account/subscription", SubscribeRequest{Plan: "PRO"}),
		http.StatusServiceUnavailable, "OFFLINE")
}
