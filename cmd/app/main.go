package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli"

	"github.com/1F47E/go-albumsign/pkg/capture"
	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/core"
	"github.com/1F47E/go-albumsign/pkg/logger"
	"github.com/1F47E/go-albumsign/pkg/sign"
)

var app = cli.NewApp()
var log = logger.Log

var titleIDFlag = cli.StringFlag{
	Name:  "titleid, t",
	Usage: "16 digit hex title ID used for sorting in the album (default home menu " + cfg.DefaultTitleID + ")",
}

func init() {
	app.Name = "albumsign"
	app.Usage = "Sign JPG files for use with the Switch album"
	app.UsageText = "albumsign [--keys file] command [options] file..."
	app.HideVersion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "keys, k",
			Usage: "YAML file with hmac_secret and capture_key (hex), overridden by " + cfg.EnvHMACSecret + " / " + cfg.EnvCaptureKey,
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "sign",
			Aliases:   []string{"s"},
			Usage:     "Sign image files into the album tree",
			ArgsUsage: "file [file...]",
			Flags: []cli.Flag{
				titleIDFlag,
				cli.StringFlag{
					Name:  "date, d",
					Usage: "start timestamp YYYYMMDDHHMMSS, files are dated backwards from it (default now)",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: cfg.PathAlbumRoot,
					Usage: "album root directory",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Value: 1,
					Usage: "files signed in parallel",
				},
			},
			Action: signAction,
		},
		{
			Name:      "verify",
			Aliases:   []string{"v"},
			Usage:     "Check the signature of screenshots",
			ArgsUsage: "file [file...]",
			Action:    verifyAction,
		},
		{
			Name:    "id",
			Aliases: []string{"i"},
			Usage:   "Print the capture ID for a title ID",
			Flags:   []cli.Flag{titleIDFlag},
			Action:  idAction,
		},
	}
}

func getFiles(c *cli.Context) ([]string, error) {
	files := []string(c.Args())
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: at least one file is required", cfg.ErrConfiguration)
	}
	return files, nil
}

func signAction(c *cli.Context) error {
	files, err := getFiles(c)
	if err != nil {
		return err
	}
	secrets, err := cfg.LoadSecrets(c.GlobalString("keys"))
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cr, err := core.New(ctx, core.Settings{
		TitleID: c.String("titleid"),
		Date:    c.String("date"),
		Root:    c.String("out"),
		Workers: c.Int("workers"),
		Secrets: secrets,
		Output:  c.App.Writer,
	})
	if err != nil {
		return err
	}
	log.Infof("Capture ID %s", cr.Identity())

	tally := cr.SignFiles(files)
	printTally(c, tally)
	return nil
}

func verifyAction(c *cli.Context) error {
	files, err := getFiles(c)
	if err != nil {
		return err
	}
	secrets, err := cfg.LoadSecrets(c.GlobalString("keys"))
	if err != nil {
		return err
	}
	signer, err := sign.New(secrets.HMACSecret)
	if err != nil {
		return err
	}
	printTally(c, core.VerifyFiles(signer, files, c.App.Writer))
	return nil
}

func idAction(c *cli.Context) error {
	secrets, err := cfg.LoadSecrets(c.GlobalString("keys"))
	if err != nil {
		return err
	}
	cipher, err := capture.NewCipher(secrets.CaptureKey)
	if err != nil {
		return err
	}
	id, err := cipher.FromTitleID(c.String("titleid"))
	if err != nil {
		return fmt.Errorf("%w: %w", cfg.ErrConfiguration, err)
	}
	fmt.Fprintln(c.App.Writer, id)
	return nil
}

func printTally(c *cli.Context, t core.Tally) {
	fmt.Fprintf(c.App.Writer, "\nProcess completed.\n\nSuccessful: %d\nFailed: %d\n", t.Success, t.Failed)
}

func main() {
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}
