//go:build integration

package integration

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hochfrequenz/doccheck/internal/collector"
	"github.com/hochfrequenz/doccheck/internal/domain"
	"github.com/hochfrequenz/doccheck/internal/executor"
	"github.com/hochfrequenz/doccheck/internal/oracle"
	"github.com/hochfrequenz/doccheck/internal/peer"
	"github.com/hochfrequenz/doccheck/internal/pipeline"
	"github.com/hochfrequenz/doccheck/internal/reportstore"
)

// TestValidateFlow_RemotePeerToStore runs the full pipeline:
// document -> fake oracle -> remote peer shell -> report store
func TestValidateFlow_RemotePeerToStore(t *testing.T) {
	RequireShell(t)
	doc, oraclePath := WriteSampleProject(t)

	srv := peer.New(peer.Options{
		Shell:         "/bin/sh",
		Dir:           t.TempDir(),
		BannerTimeout: 200 * time.Millisecond,
		Collector:     collector.Options{ReadTimeout: 500 * time.Millisecond, Pace: 20 * time.Millisecond},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	store, err := reportstore.New(TempDBPath(t))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	o := oracle.NewClaude(oracle.ClaudeOptions{Command: oraclePath})
	exec := executor.NewRemote(o, oracle.NewGateway(o, nil), executor.RemoteOptions{
		URL:             "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws",
		ResponseTimeout: 10 * time.Second,
	})
	v := pipeline.NewValidator(o, exec, pipeline.ValidatorOptions{Mode: domain.ModeRemote, Store: store})

	run, err := v.Validate(context.Background(), doc)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	stored, err := store.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if stored.Status != domain.RunCompleted || stored.Mode != domain.ModeRemote {
		t.Errorf("stored run = %s/%s, want completed/remote", stored.Status, stored.Mode)
	}
	if len(stored.Report.GoalReports) != 1 {
		t.Fatalf("goal count = %d, want 1", len(stored.Report.GoalReports))
	}
	reports := stored.Report.GoalReports[0].CommandReports
	if len(reports) != 1 || reports[0].Outcome != domain.OutcomeSuccess {
		t.Errorf("command reports = %+v, want one success", reports)
	}
}
