// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of revolve-go.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package profiler

import (
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/NHR-FAU/revolve-go/log"
)

const createSampleTable = `CREATE TABLE IF NOT EXISTS profile_sample (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	flushed_at INTEGER NOT NULL,
	section TEXT NOT NULL,
	action TEXT NOT NULL,
	elapsed_ns INTEGER NOT NULL,
	count INTEGER NOT NULL
)`

// Store persists Profiler snapshots to a small sqlite table, grounded
// on internal/repository's DBConnection/stmtCache pattern (squirrel
// query builder over a single sqlx.DB handle) — trimmed to the one
// table this package needs rather than a full repository layer.
type Store struct {
	db *sqlx.DB

	mu  sync.Mutex
	sch gocron.Scheduler
}

// OpenStore opens (creating if necessary) a sqlite database at path
// and ensures the profile_sample table exists.
func OpenStore(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("profiler: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createSampleTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("profiler: create profile_sample: %w", err)
	}
	return &Store{db: db}, nil
}

// Flush writes every entry currently accumulated in p as one batch of
// rows stamped with the current time, then does not reset p — repeated
// flushes accumulate a time series of running totals, matching the
// Python original's summary()/get_dict() being safe to call mid-run.
func (s *Store) Flush(p *Profiler) error {
	entries := p.Snapshot()
	if len(entries) == 0 {
		return nil
	}

	now := time.Now().Unix()
	insert := sq.Insert("profile_sample").Columns("flushed_at", "section", "action", "elapsed_ns", "count")
	for _, e := range entries {
		insert = insert.Values(now, e.Section, e.Action, e.Elapsed.Nanoseconds(), e.Count)
	}
	if _, err := insert.RunWith(s.db).Exec(); err != nil {
		return fmt.Errorf("profiler: flush: %w", err)
	}
	return nil
}

// StartPeriodicFlush registers a background job that calls Flush every
// interval, grounded on internal/taskManager's single gocron.Scheduler
// with one DurationJob per registered background task.
func (s *Store) StartPeriodicFlush(p *Profiler, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sch, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("profiler: create scheduler: %w", err)
	}
	if _, err := sch.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := s.Flush(p); err != nil {
				log.Warnf("profiler: periodic flush failed: %v", err)
			}
		}),
	); err != nil {
		return fmt.Errorf("profiler: register flush job: %w", err)
	}

	s.sch = sch
	sch.Start()
	return nil
}

// Close stops any periodic flush job and closes the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	sch := s.sch
	s.sch = nil
	s.mu.Unlock()

	if sch != nil {
		if err := sch.Shutdown(); err != nil {
			return fmt.Errorf("profiler: scheduler shutdown: %w", err)
		}
	}
	return s.db.Close()
}
