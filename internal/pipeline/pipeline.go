// Package pipeline orchestrates one forecast request end to end: fuse the
// processed sources into a SwellForecast (§4.H), score confidence (§4.I),
// prepare the prompt-ready structure (§4.J), launch the buoy and pressure
// analysts concurrently (§5), and hand their outputs to the senior
// forecaster for cross-validation and synthesis (§4.M).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/stonezone/surfcast-fusion/internal/config"
	"github.com/stonezone/surfcast-fusion/internal/domain"
	"github.com/stonezone/surfcast-fusion/internal/fusion"
	"github.com/stonezone/surfcast-fusion/internal/llm"
	"github.com/stonezone/surfcast-fusion/internal/observability"
	"github.com/stonezone/surfcast-fusion/internal/performance"
	"github.com/stonezone/surfcast-fusion/internal/prepare"
	"github.com/stonezone/surfcast-fusion/internal/processing/wavemodel"
	"github.com/stonezone/surfcast-fusion/internal/scoring"
	"github.com/stonezone/surfcast-fusion/internal/specialist/buoyanalyst"
	"github.com/stonezone/surfcast-fusion/internal/specialist/pressureanalyst"
	"github.com/stonezone/surfcast-fusion/internal/specialist/senior"
	"github.com/stonezone/surfcast-fusion/internal/spectral"
)

// Request bundles everything one forecast run needs. Sources are assumed
// already normalized into domain records by the external crawlers (§1);
// the pipeline fuses, scores, and narrates.
type Request struct {
	Buoys                []domain.BuoyData
	BuoySpectra          map[string]spectral.Spectrum
	WindFactorByShore    map[string]float64
	Models               []domain.ModelData
	Aux                  fusion.AuxiliaryFeeds
	PresentSourceClasses map[string]bool
	ChartImages          []pressureanalyst.ChartImage
	Region               string
	BundleDir            string
}

// Result is everything one forecast run produced, kept separate so a
// driver can render narrative, digests, and raw data independently.
type Result struct {
	Forecast       *domain.SwellForecast
	Prepared       *prepare.Prepared
	BuoyOutput     domain.SpecialistOutput
	PressureOutput domain.SpecialistOutput
	SeniorOutput   domain.SpecialistOutput
}

// Pipeline is the constructor-injected orchestrator (no singletons, per
// Design Notes §9): every stage it drives is itself constructor-injected.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	fusionEng *fusion.Engine
	buoyA     *buoyanalyst.Analyst
	pressureA *pressureanalyst.Analyst
	seniorF   *senior.Forecaster
	perfStore performance.Store

	ready atomic.Bool
}

// New wires one Pipeline from its configuration, an LLM client shared by
// all three specialists, and a historical-performance store (use
// performance.NewStubStore() when no live validation DB is wired).
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, client llm.Client, modelName string, perfStore performance.Store) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	if perfStore == nil {
		perfStore = performance.NewStubStore()
	}

	domain.SetRejectionHook(func(field string) {
		metrics.ObservationsRejected.WithLabelValues(field).Inc()
	})

	scorer := scoring.New(cfg.ScoringCacheSize)
	analyzer := spectral.New(cfg.SpectralPeakWindow)
	retryCfg := llm.RetryConfig{MaxRetries: cfg.LLMMaxRetries, InitialBackoff: llm.DefaultRetryConfig.InitialBackoff}

	return &Pipeline{
		cfg:    cfg,
		logger: logger,
		metrics: metrics,
		fusionEng: fusion.New(fusion.Config{
			MinPeriod: cfg.MinPeriodSeconds,
			DaysAhead: cfg.DaysAhead,
		}, logger, scorer, analyzer),
		buoyA:     buoyanalyst.New(client, modelName).WithRetryConfig(retryCfg),
		pressureA: pressureanalyst.New(client, modelName).WithRetryConfig(retryCfg),
		seniorF:   senior.New(client, modelName).WithThresholds(cfg.MinSpecialistsRequired, senior.DefaultConfidenceFloor).WithRetryConfig(retryCfg),
		perfStore: perfStore,
	}
}

// CheckReadiness reports whether the pipeline has completed at least one
// forecast request, satisfying the httpadapter.ReadinessChecker contract.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a forecast yet")
	}
	return nil
}

// Run executes the full fuse -> prepare -> specialists -> synthesize flow
// for one request.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	maeFt := p.recentMAEFeet(ctx)

	for i := range req.Models {
		wavemodel.Process(&req.Models[i])
	}

	forecast, err := timedStage(p, "fuse", func() (*domain.SwellForecast, error) {
		return p.fusionEng.Fuse(fusion.Input{
			Buoys:                req.Buoys,
			BuoySpectra:          req.BuoySpectra,
			WindFactorByShore:    req.WindFactorByShore,
			Models:               req.Models,
			Aux:                  req.Aux,
			RecentMAEFt:          maeFt,
			PresentSourceClasses: req.PresentSourceClasses,
		})
	})
	if err != nil {
		p.metrics.ForecastErrors.Inc()
		return nil, fmt.Errorf("pipeline: fuse: %w", err)
	}

	prepared := p.prepareStage(forecast, req)

	buoyRes, pressureRes := p.runSpecialistsConcurrently(ctx, req)

	var specialists []domain.SpecialistOutput
	if buoyRes.err == nil {
		specialists = append(specialists, buoyRes.output)
	} else {
		p.logger.Error("buoy analyst failed", "error", buoyRes.err)
	}
	if pressureRes.err == nil {
		specialists = append(specialists, pressureRes.output)
	} else {
		p.logger.Error("pressure analyst failed", "error", pressureRes.err)
	}

	if len(specialists) < p.cfg.MinSpecialistsRequired {
		p.metrics.ForecastErrors.Inc()
		if buoyRes.timedOut || pressureRes.timedOut {
			return nil, fmt.Errorf("pipeline: specialist timeout below minimum required: %w", domain.ErrInsufficientSpecialists)
		}
		return nil, fmt.Errorf("pipeline: %w", domain.ErrInsufficientSpecialists)
	}

	seniorOut, err := timedStage(p, "senior", func() (domain.SpecialistOutput, error) {
		return p.seniorF.Synthesize(ctx, specialists, forecast.Events, prepared.SeasonalContext)
	})
	if err != nil {
		p.metrics.ForecastErrors.Inc()
		p.metrics.SpecialistCalls.WithLabelValues("senior", "error").Inc()
		return nil, fmt.Errorf("pipeline: senior: %w", err)
	}
	p.metrics.SpecialistCalls.WithLabelValues("senior", "ok").Inc()

	p.metrics.ForecastsGenerated.Inc()
	p.metrics.ConfidenceScore.Observe(seniorOut.Confidence)
	p.ready.Store(true)

	return &Result{
		Forecast:       forecast,
		Prepared:       prepared,
		BuoyOutput:     buoyRes.output,
		PressureOutput: pressureRes.output,
		SeniorOutput:   seniorOut,
	}, nil
}

func (p *Pipeline) recentMAEFeet(ctx context.Context) *float64 {
	report, err := p.perfStore.RecentPerformance(ctx, p.cfg.PerformanceWindowDays, p.cfg.PerformanceMinSamples, p.cfg.PerformanceOutlierFeet)
	if err != nil {
		p.logger.Warn("recent performance query failed, using default accuracy", "error", err)
		return nil
	}
	mae := report.Overall.MAE
	return &mae
}

func (p *Pipeline) prepareStage(forecast *domain.SwellForecast, req Request) *prepare.Prepared {
	filtered := prepare.FilterExcluded(p.logger, forecast)
	digests := prepare.BuildShoreDigests(filtered, 6)
	overall := prepare.BuildOverallDigest(filtered)
	seasonal := prepare.BuildSeasonalContext(domain.Now())

	var images []prepare.Image
	if req.BundleDir != "" {
		images = prepare.CollectImages(p.logger, req.BundleDir)
	}
	critical := prepare.SelectCriticalImages(images, p.cfg.MaxImages)

	textChars := 0
	for _, lines := range digests {
		for _, l := range lines {
			textChars += len(l)
		}
	}
	for _, v := range overall {
		textChars += len(v)
	}

	return &prepare.Prepared{
		Forecast:        filtered,
		ShoreDigests:    digests,
		OverallDigest:   overall,
		SeasonalContext: seasonal,
		Images:          critical,
		TokenEstimate:   prepare.EstimateTokens(textChars, critical),
	}
}

type specialistResult struct {
	output   domain.SpecialistOutput
	err      error
	timedOut bool
}

// runSpecialistsConcurrently launches the buoy and pressure analysts at
// the same time and awaits both, per §5: neither call is allowed to block
// the other, and the senior forecaster always observes two completed (or
// failed) subordinate calls before it runs.
func (p *Pipeline) runSpecialistsConcurrently(ctx context.Context, req Request) (buoyRes, pressureRes specialistResult) {
	buoyCh := p.launchSpecialist(ctx, "buoy", func(sctx context.Context) (domain.SpecialistOutput, error) {
		return p.buoyA.Analyze(sctx, req.Buoys)
	})
	pressureCh := p.launchSpecialist(ctx, "pressure", func(sctx context.Context) (domain.SpecialistOutput, error) {
		return p.pressureA.Analyze(sctx, req.ChartImages, req.Region)
	})
	return <-buoyCh, <-pressureCh
}

func (p *Pipeline) launchSpecialist(ctx context.Context, kind string, fn func(context.Context) (domain.SpecialistOutput, error)) <-chan specialistResult {
	ch := make(chan specialistResult, 1)
	go func() {
		timeout := p.cfg.LLMTimeout
		if timeout <= 0 {
			timeout = llm.DefaultRetryConfig.InitialBackoff * time.Duration(llm.DefaultRetryConfig.MaxRetries) * 20
		}
		sctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start := domain.Now()
		out, err := fn(sctx)
		p.metrics.SpecialistDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

		if err != nil {
			timedOut := errors.Is(sctx.Err(), context.DeadlineExceeded)
			outcome := "error"
			if timedOut {
				outcome = "timeout"
			}
			p.metrics.SpecialistCalls.WithLabelValues(kind, outcome).Inc()
			if errors.Is(err, domain.ErrLLMUnavailable) {
				p.metrics.LLMUnavailable.Inc()
			}
			ch <- specialistResult{err: err, timedOut: timedOut}
			return
		}
		p.metrics.SpecialistCalls.WithLabelValues(kind, "ok").Inc()
		ch <- specialistResult{output: out}
	}()
	return ch
}

func timedStage[T any](p *Pipeline, name string, fn func() (T, error)) (T, error) {
	start := domain.Now()
	defer func() { p.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds()) }()
	return fn()
}
