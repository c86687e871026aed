// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command revolve-demo drives one full forward-then-adjoint sweep of a
// toy scalar simulation, using whichever checkpoint schedule and
// storage hierarchy the config file describes. It exists to exercise
// the driver/scheduler/storage stack end to end — the actual
// forward/reverse operators and checkpoint view it wires up are
// placeholders a real caller replaces with their own simulation.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/NHR-FAU/revolve-go/checkpoint"
	"github.com/NHR-FAU/revolve-go/config"
	"github.com/NHR-FAU/revolve-go/driver"
	"github.com/NHR-FAU/revolve-go/log"
	"github.com/NHR-FAU/revolve-go/profiler"
	"github.com/NHR-FAU/revolve-go/scheduler/hrevolve"
	"github.com/NHR-FAU/revolve-go/scheduler/revolve"
	"github.com/NHR-FAU/revolve-go/storage"
)

// scalarView models one float64 state variable in a single reused
// buffer, so Save/Load mutate it in place exactly as checkpoint.View's
// contract requires.
type scalarView struct {
	state []float64
}

func newScalarView(initial float64) *scalarView {
	return &scalarView{state: []float64{initial}}
}

func (v *scalarView) Buffers() []storage.Buffer[float64] {
	return []storage.Buffer[float64]{{Shape: []int{1}, Data: v.state}}
}

func main() {
	var flagConfigFile string
	var flagNoServer bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "program configuration file")
	flag.BoolVar(&flagNoServer, "no-run", false, "validate configuration and exit without running a sweep")
	flag.Parse()

	if err := config.Init(flagConfigFile); err != nil {
		log.Fatalf("config: %s", err.Error())
	}
	log.Init(config.Keys.LogLevel, false)

	if flagNoServer {
		log.Info("configuration OK")
		return
	}

	if err := run(); err != nil {
		log.Fatalf("revolve-demo: %s", err.Error())
	}
}

func run() error {
	cfg := config.Keys

	prof := profiler.New()
	var store *profiler.Store
	if cfg.ProfilerDB != "" {
		var err error
		store, err = profiler.OpenStore(cfg.ProfilerDB)
		if err != nil {
			return fmt.Errorf("open profiler store: %w", err)
		}
		defer store.Close()

		interval := time.Duration(cfg.FlushIntervalSeconds) * time.Second
		if err := store.StartPeriodicFlush(prof, interval); err != nil {
			return fmt.Errorf("start periodic flush: %w", err)
		}
	}

	view := newScalarView(1)
	fwd := checkpoint.OperatorFunc(func(tStart, tEnd uint32) error {
		for s := tStart; s < tEnd; s++ {
			view.state[0] *= 1.01
		}
		return nil
	})
	rev := checkpoint.OperatorFunc(func(tStart, tEnd uint32) error {
		log.Debugf("adjoint step at t=%d, state=%f", tStart, view.state[0])
		return nil
	})

	ctx := context.Background()

	var d *driver.Revolver[float64]

	switch cfg.Scheduler {
	case "revolve":
		if len(cfg.Tiers) != 1 {
			return fmt.Errorf("scheduler \"revolve\" drives exactly one storage tier, got %d", len(cfg.Tiers))
		}
		tier, err := storage.Build[float64](ctx, cfg.Tiers[0].Config)
		if err != nil {
			return fmt.Errorf("build tier: %w", err)
		}
		defer tier.Close()

		sched, err := revolve.New(cfg.Checkpoints, cfg.Timesteps)
		if err != nil {
			return fmt.Errorf("build revolve scheduler: %w", err)
		}
		d = driver.NewSingleLevel[float64](sched, tier, fwd, rev, view, prof)

	case "hrevolve":
		architecture, err := cfg.Architecture()
		if err != nil {
			return fmt.Errorf("build architecture: %w", err)
		}
		tiers := make([]storage.Tier[float64], len(cfg.Tiers))
		for i, tc := range cfg.Tiers {
			t, err := storage.Build[float64](ctx, tc.Config)
			if err != nil {
				return fmt.Errorf("build tier %d: %w", i, err)
			}
			defer t.Close()
			tiers[i] = t
		}
		if !architecture.Sorted() {
			log.Warn("architecture tiers are not listed fast/small first; schedule will still run but may not be optimal")
		}

		sched, err := hrevolve.New(cfg.Timesteps, architecture, cfg.StorageFactors.Uf, cfg.StorageFactors.Ub)
		if err != nil {
			return fmt.Errorf("build hrevolve scheduler: %w", err)
		}
		log.Infof("hrevolve: modeled makespan %.3f", sched.Makespan())
		d = driver.NewMultiLevel[float64](sched, tiers, fwd, rev, view, prof)

	default:
		return fmt.Errorf("unknown scheduler %q", cfg.Scheduler)
	}

	if err := d.ApplyForward(); err != nil {
		return fmt.Errorf("forward sweep: %w", err)
	}
	if err := d.ApplyReverse(); err != nil {
		return fmt.Errorf("reverse sweep: %w", err)
	}

	log.Infof("recomputation ratio: %.3f", d.Ratio())
	log.Info(prof.Summary())
	if store != nil {
		if err := store.Flush(prof); err != nil {
			return fmt.Errorf("final flush: %w", err)
		}
	}
	return nil
}
