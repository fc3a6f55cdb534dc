package job

import (
	"fmt"
	"path/filepath"

	"github.com/1F47E/go-albumsign/pkg/storage"
)

// job for the signing worker
type Job struct {
	File string
	Idx  int
	Slot storage.Slot
}

// res from the signing worker
type Result struct {
	File string
	Idx  int
	Path string
	Err  error
}

func New(file string, idx int, slot storage.Slot) Job {
	return Job{
		File: file,
		Idx:  idx,
		Slot: slot,
	}
}

func (j *Job) Print() string {
	return fmt.Sprintf("Job: #%d %s -> %s", j.Idx, filepath.Base(j.File), j.Slot.Path)
}

func (j *Job) Done(err error) Result {
	r := Result{File: j.File, Idx: j.Idx, Err: err}
	if err == nil {
		r.Path = j.Slot.Path
	}
	return r
}

func (r Result) OK() bool {
	return r.Err == nil
}
