package e2e

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TestScenario_RestrictedSkill walks a restricted skill through every capability level
func TestScenario_RestrictedSkill(t *testing.T) {
	testServer := SetupE2ETest(t)
	defer testServer.Teardown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alice := testServer.Member("alice")
	bob := testServer.Member("bob")
	deploy := testServer.Skill("deploy")

	// Step 1: alice を Admin にする（初期データには grant がない）
	t.Log("Step 1: Granting Admin to alice")
	if err := testServer.grant(ctx, alice, alice, deploy, "Admin"); err != nil {
		t.Fatalf("SetPermission failed: %v", err)
	}

	steps := []struct {
		capability                string
		wantRun, wantEdit, wantAd bool
	}{
		{capability: "None"},
		{capability: "Use", wantRun: true},
		{capability: "Edit", wantRun: true, wantEdit: true},
		{capability: "Admin", wantRun: true, wantEdit: true, wantAd: true},
		{capability: "Use", wantRun: true},
		{capability: "None"},
	}

	// Step 2: bob の権限を順に変え、キャッシュ越しでも即座に反映されることを確認
	for _, step := range steps {
		if err := testServer.grant(ctx, alice, bob, deploy, step.capability); err != nil {
			t.Fatalf("SetPermission(%s) failed: %v", step.capability, err)
		}

		// Twice, so the second answer comes from the grant cache
		for i := 0; i < 2; i++ {
			if got := testServer.check(ctx, t, bob, deploy, "run"); got != step.wantRun {
				t.Errorf("[%s] run = %v, want %v", step.capability, got, step.wantRun)
			}
			if got := testServer.check(ctx, t, bob, deploy, "edit"); got != step.wantEdit {
				t.Errorf("[%s] edit = %v, want %v", step.capability, got, step.wantEdit)
			}
			if got := testServer.check(ctx, t, bob, deploy, "administer"); got != step.wantAd {
				t.Errorf("[%s] administer = %v, want %v", step.capability, got, step.wantAd)
			}
		}
	}
	t.Log("✓ Capability changes are visible immediately")

	// Step 3: 監査ログ
	resp, err := testServer.Client.ListAuditEvents(ctx, mustStruct(t, map[string]interface{}{
		"skill_id": deploy,
		"limit":    2,
	}))
	if err != nil {
		t.Fatalf("ListAuditEvents failed: %v", err)
	}
	events := resp.GetFields()["events"].GetListValue().GetValues()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	latest := events[0].GetStructValue().GetFields()["description"].GetStringValue()
	if latest != "Removed `Use` permission from `bob` for skill `deploy`." {
		t.Errorf("latest audit event = %q", latest)
	}

	cacheMetrics := testServer.Collector.GetCacheMetrics()
	if cacheMetrics.Hits == 0 {
		t.Error("expected grant cache hits")
	}
	decisions := testServer.Collector.GetDecisionMetrics()
	if decisions.Allowed["run"] == 0 || decisions.Denied["administer"] == 0 {
		t.Errorf("unexpected decision metrics: %+v", decisions)
	}
}

// TestScenario_UnrestrictedSkill covers unrestricted skills and other organizations
func TestScenario_UnrestrictedSkill(t *testing.T) {
	testServer := SetupE2ETest(t)
	defer testServer.Teardown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	carol := testServer.Member("carol")
	mallory := testServer.Member("mallory")
	weather := testServer.Skill("weather")

	tests := []struct {
		name     string
		memberID string
		action   string
		want     bool
	}{
		{"同じ組織のメンバーは実行できる", carol, "run", true},
		{"同じ組織のメンバーは編集できる", carol, "edit", true},
		{"管理には Admin が必要", carol, "administer", false},
		{"他組織のメンバーも実行できる", mallory, "run", true},
		{"他組織のメンバーは編集できない", mallory, "edit", false},
		{"匿名でも実行できる", "", "run", true},
		{"匿名では編集できない", "", "edit", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testServer.check(ctx, t, tt.memberID, weather, tt.action); got != tt.want {
				t.Errorf("Check(%q, weather, %s) = %v, want %v", tt.memberID, tt.action, got, tt.want)
			}
		})
	}

	t.Run("restrict すると付与なしでは実行できない", func(t *testing.T) {
		_, err := testServer.Client.SetRestricted(ctx, mustStruct(t, map[string]interface{}{
			"actor_id":   testServer.Member("alice"),
			"skill_id":   weather,
			"restricted": true,
		}))
		if err != nil {
			t.Fatalf("SetRestricted failed: %v", err)
		}
		if testServer.check(ctx, t, carol, weather, "run") {
			t.Error("carol should not run a restricted skill without a grant")
		}
		if testServer.check(ctx, t, mallory, weather, "run") {
			t.Error("mallory should not run a restricted skill of another organization")
		}
	})
}

// TestScenario_Errors checks the status codes of rejected requests
func TestScenario_Errors(t *testing.T) {
	testServer := SetupE2ETest(t)
	defer testServer.Teardown(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	alice := testServer.Member("alice")
	mallory := testServer.Member("mallory")
	deploy := testServer.Skill("deploy")
	payroll := testServer.Skill("payroll")

	tests := []struct {
		name string
		call  func() error
		want  codes.Code
	}{
		{
			name: "grant to another organization",
			call: func() error { return testServer.grant(ctx, alice, mallory, deploy, "Use") },
			want: codes.PermissionDenied,
		},
		{
			name: "grant on another organization's skill",
			call: func() error { return testServer.grant(ctx, alice, alice, payroll, "Use") },
			want: codes.PermissionDenied,
		},
		{
			name: "unknown capability",
			call: func() error { return testServer.grant(ctx, alice, alice, deploy, "Owner") },
			want: codes.InvalidArgument,
		},
		{
			name: "unknown skill",
			call: func() error { return testServer.grant(ctx, alice, alice, "skill-missing", "Use") },
			want: codes.NotFound,
		},
		{
			name: "unknown action",
			call: func() error {
				_, err := testServer.Client.Check(ctx, mustStruct(t, map[string]interface{}{
					"member_id": alice,
					"skill_id":  deploy,
					"action":    "delete",
				}))
				return err
			},
			want: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if status.Code(err) != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	apiMetrics := testServer.Collector.GetAPIMetrics()
	if apiMetrics.ErrorCounts["/skillperm.v1.CapabilityService/SetPermission"] != 4 {
		t.Errorf("expected 4 SetPermission errors, got %d", apiMetrics.ErrorCounts["/skillperm.v1.CapabilityService/SetPermission"])
	}
}
