package cmd

import (
	"context"
	"fmt"

	"eventtracker/internal/adapter/outbound/cache"
	"eventtracker/internal/adapter/outbound/csharp"
	"eventtracker/internal/adapter/outbound/diagnostics"
	"eventtracker/internal/adapter/outbound/persistence"
	"eventtracker/internal/adapter/outbound/rewriter"
	"eventtracker/internal/adapter/outbound/unityproject"
	"eventtracker/internal/adapter/outbound/unityyaml"
	"eventtracker/internal/application/common/slogger"
	"eventtracker/internal/application/service"
	"eventtracker/internal/config"
	domainservice "eventtracker/internal/domain/service"
	"eventtracker/internal/version"

	"github.com/spf13/cobra"
)

// app holds the components a command works with.
type app struct {
	cfg     *config.Config
	project *unityproject.Project
	tracker *service.Tracker
	metrics *service.MetricsProvider
}

// newApp loads the configuration, opens the project and wires a tracker with
// its persisted data loaded.
func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := slogger.Configure(cfg.Logging()); err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	project, err := unityproject.Open(ctx, cfg.Project.Root, unityproject.Options{
		IgnoreFolders:    cfg.Project.IgnoreFolders,
		IncludeAllScenes: cfg.Project.IncludeAllScenes,
	})
	if err != nil {
		return nil, err
	}

	catalog, err := csharp.NewCatalog(project.Root(), cfg.Scripts.ParseWorkers)
	if err != nil {
		return nil, fmt.Errorf("create script catalog: %w", err)
	}
	assets, err := cache.NewAssetObjectCache(project, cfg.Project.AssetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create asset cache: %w", err)
	}
	provider, err := service.NewMetricsProvider(ctx, version.GetVersion().Version)
	if err != nil {
		return nil, err
	}
	metrics, err := service.NewScanMetricsWithProvider(provider.MeterProvider())
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	storeDir := cfg.StorePath()
	validator := domainservice.NewCompatibilityValidator(catalog)
	tracker := service.NewTracker(service.TrackerDeps{
		Project:           project,
		Catalog:           catalog,
		Extractor:         unityyaml.NewExtractor(validator, assets),
		Validator:         validator,
		Calls:             persistence.NewCallStore(storeDir),
		ScriptsWithEvents: persistence.NewStringSet(storeDir, persistence.ScriptsWithEventsFileName),
		ScriptsToCheck:    persistence.NewStringSet(storeDir, persistence.ScriptsToCheckFileName),
		State:             persistence.NewTrackerStateFile(storeDir),
		Diagnostics:       diagnostics.NewBugReportSink(cfg.DiagnosticsPath(), cfg.Diagnostics.MaxReports),
		Rewriter:          rewriter.NewMethodRewriter(project.Root()),
		Metrics:           metrics,
	}, service.TrackerOptions{
		Enabled:       cfg.Tracking.Enabled,
		ReportInvalid: cfg.Tracking.ReportInvalid,
	})
	if err := tracker.Load(ctx); err != nil {
		_ = provider.Shutdown(ctx)
		return nil, fmt.Errorf("load binding store: %w", err)
	}

	return &app{cfg: cfg, project: project, tracker: tracker, metrics: provider}, nil
}

// close flushes the metrics of the run. It runs after cancellation too.
func (a *app) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := a.metrics.Shutdown(ctx); err != nil {
		slogger.Warn(ctx, "Failed to shut down metrics", slogger.Fields{"error": err.Error()})
	}
}
