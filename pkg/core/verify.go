package core

import (
	"io"
	"os"
	"path/filepath"

	"github.com/1F47E/go-albumsign/pkg/capture"
	"github.com/1F47E/go-albumsign/pkg/core/progress"
	"github.com/1F47E/go-albumsign/pkg/job"
	"github.com/1F47E/go-albumsign/pkg/logger"
	"github.com/1F47E/go-albumsign/pkg/sign"
)

// VerifyFiles checks already signed screenshots the way the album app does.
// Only the HMAC secret is needed.
func VerifyFiles(signer *sign.Signer, files []string, out io.Writer) Tally {
	bar := progress.New(len(files), "Verifying...", out)
	defer bar.Finish()

	var tally Tally
	for i, f := range files {
		log := logger.Log.WithField("file", filepath.Base(f))
		r := job.Result{File: f, Idx: i}

		id, err := verifyFile(signer, f)
		if err != nil {
			r.Err = err
			log.WithError(err).Warn("Invalid")
		} else {
			r.Path = f
			log.Infof("Valid, capture ID %s", id)
		}
		tally.add(r)
		bar.Describe("Verified " + filepath.Base(f))
		bar.Add(1)
	}
	return tally
}

func verifyFile(signer *sign.Signer, path string) (capture.ID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return capture.ID{}, err
	}
	note, err := signer.Verify(data)
	if err != nil {
		return capture.ID{}, err
	}
	return note.Identity(), nil
}
