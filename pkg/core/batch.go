package core

import (
	"path/filepath"

	"github.com/1F47E/go-albumsign/pkg/core/progress"
	"github.com/1F47E/go-albumsign/pkg/job"
	"github.com/1F47E/go-albumsign/pkg/logger"
	"github.com/1F47E/go-albumsign/pkg/workers"
)

// Tally is the outcome of a batch, results are in input order.
type Tally struct {
	Success int
	Failed  int
	Results []job.Result
}

func (t *Tally) add(r job.Result) {
	t.Results = append(t.Results, r)
	if r.OK() {
		t.Success++
	} else {
		t.Failed++
	}
}

// SignFiles signs every file. A failing file is logged and counted, it never
// stops the batch.
func (c *Core) SignFiles(files []string) Tally {
	bar := progress.New(len(files), "Signing...", c.out)
	defer bar.Finish()

	report := func(t *Tally, r job.Result) {
		log := logger.Log.WithField("file", filepath.Base(r.File))
		if r.OK() {
			log.Infof("Successfully signed: %s", r.Path)
		} else {
			log.WithError(r.Err).Warn("Failed to sign")
		}
		t.add(r)
		bar.Describe("Signed " + filepath.Base(r.File))
		bar.Add(1)
	}

	var tally Tally
	if c.workers <= 1 {
		for i, f := range files {
			report(&tally, c.signOne(i, f))
		}
		return tally
	}
	c.signParallel(files, func(r job.Result) { report(&tally, r) })
	return tally
}

// signOne is the single threaded path: the timestamp only moves back after
// a file is written, so a failure leaves no gap.
func (c *Core) signOne(idx int, file string) job.Result {
	slot, err := c.seq.Next()
	if err != nil {
		return job.Result{File: file, Idx: idx, Err: err}
	}
	j := job.New(file, idx, slot)
	if err := c.SignFile(j.File, j.Slot); err != nil {
		c.seq.Release(slot)
		return j.Done(err)
	}
	c.seq.Advance()
	return j.Done(nil)
}

// signParallel reserves slots in input order, signs in a worker pool and
// reports results in input order.
func (c *Core) signParallel(files []string, report func(job.Result)) {
	log := logger.Log.WithField("scope", "core parallel")

	// list of channels to receive results from workers in order
	resChs := make([]chan job.Result, len(files))
	for i := range resChs {
		resChs[i] = make(chan job.Result, 1)
	}

	process := func(j job.Job) error {
		err := c.SignFile(j.File, j.Slot)
		if err != nil {
			c.seq.Release(j.Slot)
		}
		return err
	}
	jobs := make(chan job.Job, c.workers)
	log.Debugf("Starting %d workers", c.workers)
	w := workers.NewWorker(c.ctx, process)
	for i := 0; i < c.workers; i++ {
		go w.WorkerSign(i+1, jobs, resChs)
	}

	// send all the jobs
	go func() {
		defer close(jobs)
		for i, f := range files {
			slot, err := c.seq.Next()
			if err != nil {
				resChs[i] <- job.Result{File: f, Idx: i, Err: err}
				continue
			}
			// reserved now, so the next file gets an older timestamp
			c.seq.Advance()
			select {
			case jobs <- job.New(f, i, slot):
			case <-c.ctx.Done():
				return
			}
		}
	}()

	for i, ch := range resChs {
		select {
		case r := <-ch:
			report(r)
		case <-c.ctx.Done():
			for ; i < len(files); i++ {
				report(job.Result{File: files[i], Idx: i, Err: c.ctx.Err()})
			}
			return
		}
	}
}
