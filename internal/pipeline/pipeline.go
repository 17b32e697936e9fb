// Package pipeline wires the five stages into the fixed daily sequence:
// fetch -> volume -> lifecycle -> risk -> report. Stages run strictly
// one after another and communicate only through the folded accumulator;
// the report stage deliberately ignores it and re-reads the store so the
// digest reflects durable state.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/spacradar/internal/alerts"
	"github.com/Alias1177/spacradar/internal/api/marketdata"
	"github.com/Alias1177/spacradar/internal/rules"
	"github.com/Alias1177/spacradar/models"
)

// Store is the read side of the database the rule stages need.
type Store interface {
	ListTickers(ctx context.Context) ([]models.Ticker, error)
	RecentBars(ctx context.Context, ticker string, limit int) ([]models.DailyBar, error)
}

// MarketData supplies the exchange-reported volume averages.
type MarketData interface {
	GetMetadata(ctx context.Context, symbol string) (*marketdata.Metadata, error)
}

// FetchRunner is the fetch stage.
type FetchRunner interface {
	Run(ctx context.Context, symbols []string) (models.StageResult, error)
}

// ReportRunner is the report stage.
type ReportRunner interface {
	Run(ctx context.Context, targetDate string) (int, error)
}

// recentBarWindow is today plus the five days the local average uses.
const recentBarWindow = 6

// Options configures a Pipeline.
type Options struct {
	Store        Store
	Market       MarketData
	Fetcher      FetchRunner
	Inserter     *alerts.Inserter
	Reporter     ReportRunner
	StageTimeout time.Duration
}

// Pipeline runs the anomaly detection sequence.
type Pipeline struct {
	store        Store
	market       MarketData
	fetcher      FetchRunner
	inserter     *alerts.Inserter
	reporter     ReportRunner
	stageTimeout time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.StageTimeout == 0 {
		opts.StageTimeout = 5 * time.Minute
	}

	return &Pipeline{
		store:        opts.Store,
		market:       opts.Market,
		fetcher:      opts.Fetcher,
		inserter:     opts.Inserter,
		reporter:     opts.Reporter,
		stageTimeout: opts.StageTimeout,
		now:          time.Now,
		logger:       log.With().Str("component", "pipeline").Logger(),
	}
}

type stage struct {
	name string
	run  func(ctx context.Context, st models.State) (models.StageResult, error)
}

// Run executes the full sequence for targetDate. A failing stage aborts
// that stage only: its already-inserted alerts are durable, and the
// report stage still renders whatever reached the store.
func (p *Pipeline) Run(ctx context.Context, targetDate string) (models.State, error) {
	stages := []stage{
		{"fetch", p.fetchStage},
		{"volume", p.volumeStage},
		{"lifecycle", p.lifecycleStage},
		{"risk", p.riskStage},
		{"report", func(ctx context.Context, st models.State) (models.StageResult, error) {
			return p.reportStage(ctx, targetDate)
		}},
	}

	var st models.State
	var firstErr error

	for _, s := range stages {
		sctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
		res, err := s.run(sctx, st)
		cancel()

		// Partial results from a failed stage are still folded: every
		// record in them was durably inserted before the failure.
		st.Merge(res)

		if err != nil {
			p.logger.Error().Err(err).Str("stage", s.name).Msg("Stage failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		p.logger.Info().
			Str("stage", s.name).
			Int("new_alerts", len(res.Anomalies)).
			Msg("Stage finished")
	}

	p.logger.Info().Int("total_alerts", len(st.Anomalies)).Msg("Pipeline finished")
	return st, firstErr
}

// RunFetch runs only the fetch stage.
func (p *Pipeline) RunFetch(ctx context.Context) (models.StageResult, error) {
	return p.runSingle(ctx, p.fetchStage)
}

// RunVolume runs only the volume stage.
func (p *Pipeline) RunVolume(ctx context.Context) (models.StageResult, error) {
	return p.runSingle(ctx, p.volumeStage)
}

// RunLifecycle runs only the lifecycle stage.
func (p *Pipeline) RunLifecycle(ctx context.Context) (models.StageResult, error) {
	return p.runSingle(ctx, p.lifecycleStage)
}

// RunRisk runs only the risk stage.
func (p *Pipeline) RunRisk(ctx context.Context) (models.StageResult, error) {
	return p.runSingle(ctx, p.riskStage)
}

// RunReport runs only the report stage for a target date.
func (p *Pipeline) RunReport(ctx context.Context, targetDate string) error {
	sctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	_, err := p.reportStage(sctx, targetDate)
	return err
}

func (p *Pipeline) runSingle(ctx context.Context, run func(context.Context, models.State) (models.StageResult, error)) (models.StageResult, error) {
	sctx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	return run(sctx, models.State{})
}

func (p *Pipeline) fetchStage(ctx context.Context, st models.State) (models.StageResult, error) {
	return p.fetcher.Run(ctx, st.Tickers)
}

// volumeStage evaluates the volume rule for every ticker with stored
// bars. Metadata failures only lose the exchange averages; the local
// checks still run.
func (p *Pipeline) volumeStage(ctx context.Context, st models.State) (models.StageResult, error) {
	symbols, err := p.resolveSymbols(ctx, st)
	if err != nil {
		return models.StageResult{}, err
	}

	res := models.StageResult{Tickers: symbols}
	for _, symbol := range symbols {
		bars, err := p.store.RecentBars(ctx, symbol, recentBarWindow)
		if err != nil {
			return res, err
		}
		if len(bars) == 0 {
			continue
		}

		in := rules.VolumeInputs{
			Today:        bars[0],
			LocalAvg5Day: rules.LocalAverage(bars),
		}

		if meta, err := p.market.GetMetadata(ctx, symbol); err != nil {
			p.logger.Warn().Err(err).Str("ticker", symbol).Msg("Metadata unavailable, using local averages only")
		} else {
			in.AvgVolume10Day = meta.AvgVolume10Day
			in.AvgVolume3Month = meta.AvgVolume3Month
		}

		inserted, err := p.inserter.InsertAll(ctx, rules.EvaluateVolume(in))
		res.Anomalies = append(res.Anomalies, inserted...)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func (p *Pipeline) lifecycleStage(ctx context.Context, st models.State) (models.StageResult, error) {
	tickers, err := p.store.ListTickers(ctx)
	if err != nil {
		return models.StageResult{}, err
	}

	selected := selectTickers(tickers, st.Tickers)
	res := models.StageResult{Tickers: symbolsOf(selected)}

	for _, t := range selected {
		if t.IPODate == nil {
			continue
		}

		inserted, err := p.inserter.InsertAll(ctx, rules.EvaluateLifecycle(t.Symbol, *t.IPODate, p.now()))
		res.Anomalies = append(res.Anomalies, inserted...)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func (p *Pipeline) riskStage(ctx context.Context, st models.State) (models.StageResult, error) {
	tickers, err := p.store.ListTickers(ctx)
	if err != nil {
		return models.StageResult{}, err
	}

	res := models.StageResult{Tickers: symbolsOf(tickers)}

	for _, t := range tickers {
		inserted, err := p.inserter.InsertAll(ctx, rules.EvaluateRisk(t.Symbol, t.Country, t.Exchange))
		res.Anomalies = append(res.Anomalies, inserted...)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

func (p *Pipeline) reportStage(ctx context.Context, targetDate string) (models.StageResult, error) {
	if targetDate == "" {
		targetDate = p.now().Format(models.DateLayout)
	}

	_, err := p.reporter.Run(ctx, targetDate)
	return models.StageResult{}, err
}

func (p *Pipeline) resolveSymbols(ctx context.Context, st models.State) ([]string, error) {
	if len(st.Tickers) > 0 {
		return st.Tickers, nil
	}

	tickers, err := p.store.ListTickers(ctx)
	if err != nil {
		return nil, err
	}

	return symbolsOf(tickers), nil
}

// selectTickers restricts the stored tickers to the accumulator's set
// when one was resolved by an earlier stage.
func selectTickers(tickers []models.Ticker, symbols []string) []models.Ticker {
	if len(symbols) == 0 {
		return tickers
	}

	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}

	var out []models.Ticker
	for _, t := range tickers {
		if want[t.Symbol] {
			out = append(out, t)
		}
	}

	return out
}

func symbolsOf(tickers []models.Ticker) []string {
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, t.Symbol)
	}
	return out
}
