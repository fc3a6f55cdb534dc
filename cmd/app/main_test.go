package main

import (
	"bytes"
	"encoding/hex"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	cfg "github.com/1F47E/go-albumsign/pkg/config"
	"github.com/1F47E/go-albumsign/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func setup(t *testing.T) (*bytes.Buffer, string, string) {
	t.Helper()
	t.Setenv(cfg.EnvHMACSecret, hex.EncodeToString([]byte("cli test hmac secret")))
	t.Setenv(cfg.EnvCaptureKey, hex.EncodeToString([]byte("cli-test-key-16b")))

	var out bytes.Buffer
	app.Writer = &out
	t.Cleanup(func() { app.Writer = os.Stdout })

	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	img.Set(1, 1, color.RGBA{0, 0, 0, 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	in := filepath.Join(dir, "in.png")
	require.NoError(t, os.WriteFile(in, buf.Bytes(), 0644))
	return &out, in, filepath.Join(dir, "album")
}

func TestSignRejectsBadArguments(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "short title id", args: []string{"-t", "0100000000"}},
		{name: "short date", args: []string{"-d", "202401011200"}},
		{name: "long date", args: []string{"-d", "202401011200000"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, in, root := setup(t)
			args := append([]string{"albumsign", "sign", "-o", root}, tc.args...)
			err := app.Run(append(args, in))
			require.ErrorIs(t, err, cfg.ErrConfiguration)

			_, statErr := os.Stat(root)
			require.True(t, os.IsNotExist(statErr), "no files may be written")
		})
	}
}

func TestSignRequiresFiles(t *testing.T) {
	setup(t)
	require.ErrorIs(t, app.Run([]string{"albumsign", "sign"}), cfg.ErrConfiguration)
}

func TestSignMissingKey(t *testing.T) {
	_, in, root := setup(t)
	t.Setenv(cfg.EnvHMACSecret, "")
	err := app.Run([]string{"albumsign", "sign", "-o", root, in})
	require.ErrorIs(t, err, cfg.ErrMissingKeyMaterial)
}

func TestSignThenVerify(t *testing.T) {
	out, in, root := setup(t)

	require.NoError(t, app.Run([]string{"albumsign", "sign", "-o", root, "-d", "20240229235959", in}))
	require.Contains(t, out.String(), "Successful: 1\nFailed: 0")

	matches, err := filepath.Glob(filepath.Join(root, "2024", "02", "29", "2024022923595900-*.jpg"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	out.Reset()
	require.NoError(t, app.Run([]string{"albumsign", "verify", matches[0], in}))
	require.Contains(t, out.String(), "Successful: 1\nFailed: 1")
}

func TestID(t *testing.T) {
	out, _, _ := setup(t)

	require.NoError(t, app.Run([]string{"albumsign", "id"}))
	id := strings.TrimSpace(out.String())
	require.Len(t, id, 32)
	require.Equal(t, strings.ToUpper(id), id)

	out.Reset()
	require.NoError(t, app.Run([]string{"albumsign", "id", "-t", cfg.DefaultTitleID}))
	require.Equal(t, id, strings.TrimSpace(out.String()))

	require.ErrorIs(t, app.Run([]string{"albumsign", "id", "-t", "01"}), cfg.ErrConfiguration)
}
