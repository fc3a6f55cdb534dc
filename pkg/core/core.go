package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/1F47E/go-albumsign/pkg/capture"
	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/sign"
	"github.com/1F47E/go-albumsign/pkg/storage"
)

// Settings is everything a signing run needs, already taken from the
// command line and the key sources.
type Settings struct {
	TitleID string
	// Date is YYYYMMDDHHMMSS, empty means now
	Date    string
	Root    string
	Workers int
	Secrets cfg.Secrets
	// Output receives the progress bar, nil means stdout
	Output io.Writer
	Now    func() time.Time
}

type Core struct {
	ctx      context.Context
	identity capture.ID
	signer   *sign.Signer
	seq      *storage.Sequencer
	workers  int
	out      io.Writer
}

// New validates settings and derives the capture ID. Every error it returns
// wraps cfg.ErrConfiguration, nothing has been written at that point.
func New(ctx context.Context, s Settings) (*Core, error) {
	start, err := ParseDate(s.Date, s.Now)
	if err != nil {
		return nil, err
	}
	tid, err := capture.ParseTitleID(s.TitleID)
	if err != nil {
		return nil, configErr(err)
	}
	cipher, err := capture.NewCipher(s.Secrets.CaptureKey)
	if err != nil {
		return nil, configErr(err)
	}
	signer, err := sign.New(s.Secrets.HMACSecret)
	if err != nil {
		return nil, configErr(err)
	}

	identity := cipher.Derive(tid)
	root := s.Root
	if root == "" {
		root = cfg.PathAlbumRoot
	}
	out := s.Output
	if out == nil {
		out = os.Stdout
	}
	return &Core{
		ctx:      ctx,
		identity: identity,
		signer:   signer,
		seq:      storage.NewSequencer(root, start, identity.String()),
		workers:  max(s.Workers, 1),
		out:      out,
	}, nil
}

func (c *Core) Identity() capture.ID {
	return c.identity
}

// ParseDate reads the -d argument. Empty means now().
func ParseDate(s string, now func() time.Time) (time.Time, error) {
	if s == "" {
		if now == nil {
			now = time.Now
		}
		return now(), nil
	}
	if len(s) != len(cfg.DateArgFormat) {
		return time.Time{}, fmt.Errorf("%w: date %q must be %d digits YYYYMMDDHHMMSS", cfg.ErrConfiguration, s, len(cfg.DateArgFormat))
	}
	t, err := time.ParseInLocation(cfg.DateArgFormat, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", cfg.ErrConfiguration, s, err)
	}
	return t, nil
}

func configErr(err error) error {
	return fmt.Errorf("%w: %w", cfg.ErrConfiguration, err)
}
