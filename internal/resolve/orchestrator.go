package resolve

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/netcrawl/netcrawl/internal/domain"
	"github.com/netcrawl/netcrawl/internal/infra/metrics"
)

// State of the orchestrator loop.
type State int32

const (
	StateIdle State = iota
	StateCycling
)

func (s State) String() string {
	if s == StateCycling {
		return "cycling"
	}
	return "idle"
}

// Journal records committed cycles. Optional.
type Journal interface {
	RecordCycle(ctx context.Context, s domain.CycleSummary) error
}

// Orchestrator turns trigger tokens into resolution cycles and announces
// each committed cycle with the same token. Cycles never overlap: the next
// token is not read until the current cycle has committed and published.
type Orchestrator struct {
	bus      domain.EventBus
	nodes    domain.ReachableSource
	resolver *Resolver
	journal  Journal
	log      *zap.Logger

	in, out string
	state   atomic.Int32
}

// NewOrchestrator wires a loop that listens on in and publishes on out.
func NewOrchestrator(bus domain.EventBus, nodes domain.ReachableSource, resolver *Resolver, in, out string, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{bus: bus, nodes: nodes, resolver: resolver, in: in, out: out, log: log}
}

// SetJournal attaches a cycle journal.
func (o *Orchestrator) SetJournal(j Journal) { o.journal = j }

// State returns the current loop state.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

// setState records s and mirrors it on the resolver state gauge.
func (o *Orchestrator) setState(s State) {
	o.state.Store(int32(s))
	metrics.ResolverState.Set(float64(s))
}

// Run blocks until ctx is cancelled (returning nil) or the store fails
// (returning the error).
func (o *Orchestrator) Run(ctx context.Context) error {
	sub, err := o.bus.Subscribe(ctx, o.in)
	if err != nil {
		return err
	}
	defer sub.Close()
	o.log.Info("waiting for triggers", zap.String("channel", o.in))

	for {
		token, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrBadToken) {
				o.log.Warn("ignoring trigger", zap.Error(err))
				continue
			}
			return err
		}

		if err := o.Handle(ctx, token); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Handle runs one full cycle for token and publishes token on completion.
func (o *Orchestrator) Handle(ctx context.Context, token int64) error {
	o.setState(StateCycling)
	defer o.setState(StateIdle)

	log := o.log.With(zap.Int64("token", token))
	log.Info("trigger received")

	nodes, err := o.nodes.ReachableNodes(ctx)
	if err != nil {
		return fmt.Errorf("read reachable nodes: %w", err)
	}
	addrs := domain.AddressSet(nodes)
	log.Info("reachable nodes", zap.Int("nodes", len(nodes)), zap.Int("addresses", len(addrs)))

	summary, err := o.resolver.Run(ctx, addrs)
	if err != nil {
		return err
	}
	summary.Token = token

	if o.journal != nil {
		if err := o.journal.RecordCycle(ctx, summary); err != nil {
			log.Warn("journal write failed", zap.Error(err))
		}
	}

	if err := o.bus.Publish(ctx, o.out, token); err != nil {
		return err
	}
	log.Info("cycle published", zap.String("channel", o.out))
	return nil
}
