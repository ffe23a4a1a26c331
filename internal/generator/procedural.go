package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"riftterm/internal/terminal"
)

// Config tunes the procedural simulation.
type Config struct {
	WarmUp         time.Duration
	ConnectDelay   time.Duration
	ConnectedDelay time.Duration
	ScanDelay      time.Duration

	MinWait       time.Duration
	MaxWait       time.Duration
	DecisionDelay time.Duration
	ClosingDelay  time.Duration

	TagProbability      float64
	ProcessingThreshold int
	MaxDetections       int

	MinAmount float64
	MaxAmount float64

	Capacity int

	Addresses []string
	TxIDs     []string
	Tags      []string
}

func DefaultConfig() Config {
	return Config{
		WarmUp:              500 * time.Millisecond,
		ConnectDelay:        300 * time.Millisecond,
		ConnectedDelay:      400 * time.Millisecond,
		ScanDelay:           500 * time.Millisecond,
		MinWait:             500 * time.Millisecond,
		MaxWait:             2500 * time.Millisecond,
		DecisionDelay:       150 * time.Millisecond,
		ClosingDelay:        800 * time.Millisecond,
		TagProbability:      0.7,
		ProcessingThreshold: 8,
		MaxDetections:       15,
		MinAmount:           0.1,
		MaxAmount:           2.1,
		Capacity:            terminal.DefaultCapacity,
		Addresses: []string{
			"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
			"bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq",
			"bc1q34aq5drpuwy3wgl9lhup9892qp6svr8ldzyy7c",
			"bc1qeklem3cn0th0w6avdhxguec6hxq5j5q8y8z7xh",
		},
		TxIDs: []string{
			"a1b2c3d4e5f6...",
			"f6e5d4c3b2a1...",
			"9f8e7d6c5b4a...",
			"4a5b6c7d8e9f...",
			"1a2b3c4d5e6f...",
		},
		Tags: []string{
			"RIFT:STARKNET_DEPOSIT",
			"RIFT:ZK_PROOF_SUBMIT",
			"RIFT:BTC_LOCK",
			"RIFT:EXECUTION_REQ",
			"RIFT:STATE_UPDATE",
		},
	}
}

// Validate reports every setting that would make the simulation
// impossible to finish.
func (c Config) Validate() error {
	var errs []error
	delays := []struct {
		name string
		d    time.Duration
	}{
		{"warm_up", c.WarmUp}, {"connect_delay", c.ConnectDelay}, {"connected_delay", c.ConnectedDelay},
		{"scan_delay", c.ScanDelay}, {"min_wait", c.MinWait}, {"max_wait", c.MaxWait},
		{"decision_delay", c.DecisionDelay}, {"closing_delay", c.ClosingDelay},
	}
	for _, d := range delays {
		if d.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}
	if c.MaxWait < c.MinWait {
		errs = append(errs, fmt.Errorf("max_wait %s below min_wait %s", c.MaxWait, c.MinWait))
	}
	if c.TagProbability <= 0 || c.TagProbability > 1 {
		errs = append(errs, fmt.Errorf("tag_probability %v not in (0,1]", c.TagProbability))
	}
	if c.MaxDetections < 1 {
		errs = append(errs, errors.New("max_detections must be positive"))
	}
	if c.ProcessingThreshold < 1 || c.ProcessingThreshold > c.MaxDetections {
		errs = append(errs, fmt.Errorf("processing_threshold %d not in [1,%d]", c.ProcessingThreshold, c.MaxDetections))
	}
	if c.MaxAmount < c.MinAmount || c.MinAmount < 0 {
		errs = append(errs, fmt.Errorf("amount range [%v,%v) invalid", c.MinAmount, c.MaxAmount))
	}
	if c.Capacity < 1 {
		errs = append(errs, errors.New("capacity must be positive"))
	}
	if len(c.Addresses) == 0 || len(c.TxIDs) == 0 || len(c.Tags) == 0 {
		errs = append(errs, errors.New("address, txid and tag pools must be non-empty"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid simulation config: %w", errors.Join(errs...))
	}
	return nil
}

// Procedural is one independent run of the randomized mempool simulation.
type Procedural struct {
	cfg     Config
	buf     *terminal.Buffer
	machine *terminal.Machine
	opts    options
	wait    waiter

	started    atomic.Bool
	detections atomic.Int64
	banners    atomic.Int64
}

// NewProcedural builds a generator writing into a fresh buffer of
// cfg.Capacity lines.
func NewProcedural(cfg Config, opts ...Option) (*Procedural, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	p := &Procedural{
		cfg:  cfg,
		buf:  terminal.NewBuffer(cfg.Capacity),
		opts: o,
		wait: waiter{clock: o.clock, pause: o.pause},
	}
	p.machine = terminal.NewMachine(p.phaseEntered)
	p.buf.BindPhase(p.machine)
	return p, nil
}

func (p *Procedural) Buffer() *terminal.Buffer { return p.buf }

func (p *Procedural) Phase() terminal.Phase { return p.machine.Phase() }

// PhaseHistory lists every phase visited, starting with init.
func (p *Procedural) PhaseHistory() []terminal.Phase { return p.machine.History() }

func (p *Procedural) Detections() int { return int(p.detections.Load()) }

// Banners counts processing banners emitted; it is never above one.
func (p *Procedural) Banners() int { return int(p.banners.Load()) }

func (p *Procedural) Config() Config { return p.cfg }

// Run plays the simulation to completion. It returns nil once the closing
// lines are emitted and the buffer is sealed, or ctx.Err() on cancellation.
func (p *Procedural) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	log := p.opts.logger
	log.Debug("procedural simulation starting", "max_detections", p.cfg.MaxDetections)

	if err := p.handshake(ctx); err != nil {
		return err
	}

	iteration := 0
	for p.Detections() < p.cfg.MaxDetections {
		iteration++
		if err := p.step(ctx, iteration); err != nil {
			return err
		}
	}

	if err := p.wait.sleep(ctx, p.cfg.ClosingDelay); err != nil {
		return err
	}
	if err := p.emitAll(ctx,
		line{"━━━ DEMO COMPLETE ━━━", terminal.KindSuccess},
		line{fmt.Sprintf("Detected %d RIFT transactions in ~50 seconds", p.cfg.MaxDetections), terminal.KindSuccess},
		line{"Ready for Starknet execution layer...", terminal.KindInfo},
	); err != nil {
		return err
	}
	if err := p.machine.Advance(terminal.PhaseComplete); err != nil {
		return err
	}
	p.buf.Seal()
	log.Debug("procedural simulation complete", "iterations", iteration, "detections", p.Detections())
	return nil
}

func (p *Procedural) handshake(ctx context.Context) error {
	steps := []struct {
		delay time.Duration
		line  line
	}{
		{p.cfg.WarmUp, line{"Initializing Rift Protocol mempool monitor...", terminal.KindInfo}},
		{p.cfg.ConnectDelay, line{"Connecting to Bitcoin node (testnet)...", terminal.KindInfo}},
		{p.cfg.ConnectedDelay, line{"Connected. Monitoring mempool for RIFT tags...", terminal.KindSuccess}},
	}
	for _, s := range steps {
		if err := p.wait.sleep(ctx, s.delay); err != nil {
			return err
		}
		if err := p.emit(ctx, s.line.text, s.line.kind); err != nil {
			return err
		}
	}
	if err := p.wait.sleep(ctx, p.cfg.ScanDelay); err != nil {
		return err
	}
	return p.machine.Advance(terminal.PhaseScanning)
}

// step runs one candidate transaction through detection.
func (p *Procedural) step(ctx context.Context, iteration int) error {
	src := p.opts.source
	if err := p.wait.sleep(ctx, UniformDuration(src, p.cfg.MinWait, p.cfg.MaxWait)); err != nil {
		return err
	}

	tx := p.candidate()
	if err := p.emitAll(ctx,
		line{"[MEMPOOL] New tx detected: " + tx.TxID, terminal.KindInfo},
		line{"  From: " + truncate(tx.Address, 16) + "...", terminal.KindInfo},
		line{"  Amount: " + FormatAmount(tx.Amount) + " BTC", terminal.KindInfo},
	); err != nil {
		return err
	}

	if err := p.wait.sleep(ctx, p.cfg.DecisionDelay); err != nil {
		return err
	}

	if Chance(src, p.cfg.TagProbability) {
		if err := p.emitAll(ctx,
			line{"  ⚡ RIFT TAG DETECTED: " + tx.Tag, terminal.KindSuccess},
			line{"  → Queuing for ZK proof generation", terminal.KindSuccess},
		); err != nil {
			return err
		}
		tx.Index = int(p.detections.Add(1))
		p.opts.logger.Debug("rift tag detected", "iteration", iteration, "txid", tx.TxID, "tag", tx.Tag, "detections", tx.Index)
		if fn := p.opts.hooks.OnDetection; fn != nil {
			fn(tx)
		}
	} else if err := p.emit(ctx, "  No RIFT tag - skipping", terminal.KindWarning); err != nil {
		return err
	}

	if err := p.emit(ctx, "", terminal.KindInfo); err != nil {
		return err
	}

	if p.Detections() >= p.cfg.ProcessingThreshold && p.machine.Phase() == terminal.PhaseScanning {
		if err := p.machine.Advance(terminal.PhaseProcessing); err != nil {
			return err
		}
		p.banners.Add(1)
		return p.emit(ctx, "━━━ ZK PROOF BATCH PROCESSING ━━━", terminal.KindSuccess)
	}
	return nil
}

func (p *Procedural) candidate() Detection {
	src := p.opts.source
	return Detection{
		Address: Pick(src, p.cfg.Addresses),
		TxID:    Pick(src, p.cfg.TxIDs),
		Tag:     Pick(src, p.cfg.Tags),
		Amount:  Uniform(src, p.cfg.MinAmount, p.cfg.MaxAmount),
	}
}

type line struct {
	text string
	kind terminal.Kind
}

func (p *Procedural) emitAll(ctx context.Context, lines ...line) error {
	for _, l := range lines {
		if err := p.emit(ctx, l.text, l.kind); err != nil {
			return err
		}
	}
	return nil
}

func (p *Procedural) emit(ctx context.Context, text string, kind terminal.Kind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.buf.Append(terminal.NewLine(text, kind, p.opts.clock.Now()))
	return err
}

func (p *Procedural) phaseEntered(from, to terminal.Phase) {
	p.opts.logger.Info("phase transition", slog.String("from", from.String()), slog.String("to", to.String()))
	if fn := p.opts.hooks.OnPhase; fn != nil {
		fn(from, to)
	}
}

// FormatAmount renders a BTC amount with four decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
