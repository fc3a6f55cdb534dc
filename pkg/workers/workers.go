package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/1F47E/go-albumsign/pkg/job"
	"github.com/1F47E/go-albumsign/pkg/logger"
)

// ProcessFunc signs and writes one file.
type ProcessFunc func(j job.Job) error

type Worker struct {
	ctx     context.Context
	process ProcessFunc
}

func NewWorker(ctx context.Context, process ProcessFunc) *Worker {
	return &Worker{
		ctx:     ctx,
		process: process,
	}
}

// WorkerSign takes jobs until the channel closes and answers each one on
// the result channel of its index, so the caller can report in input order.
func (w *Worker) WorkerSign(i int, jobs <-chan job.Job, resChs []chan job.Result) {
	log := logger.Log.WithField("scope", "workers")
	name := fmt.Sprintf("WorkerSign #%d", i)
	log.Debugf("%s started", name)
	defer log.Debugf("%s finished", name)

	for {
		select {
		case <-w.ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			log.Debugf("%s got %s", name, j.Print())

			now := time.Now()
			err := w.process(j)
			log.Debugf("%s done #%d. Took time: %s", name, j.Idx, time.Since(now))

			// buffered by one, never blocks
			resChs[j.Idx] <- j.Done(err)
		}
	}
}
