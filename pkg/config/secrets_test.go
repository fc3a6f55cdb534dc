package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeKeyFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadSecrets(t *testing.T) {
	testCases := []struct {
		name    string
		file    string
		hmacEnv string
		keyEnv  string
		wantErr error
		want    Secrets
	}{
		{
			name: "from file",
			file: "hmac_secret: \"aabb\"\ncapture_key: \"00112233445566778899aabbccddeeff\"\n",
			want: Secrets{
				HMACSecret: []byte{0xaa, 0xbb},
				CaptureKey: []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff},
			},
		},
		{
			name:    "env overrides file",
			file:    "hmac_secret: \"aabb\"\ncapture_key: \"01\"\n",
			hmacEnv: "ccdd",
			want: Secrets{
				HMACSecret: []byte{0xcc, 0xdd},
				CaptureKey: []byte{0x01},
			},
		},
		{
			name:    "env only",
			hmacEnv: "01",
			keyEnv:  "02",
			want:    Secrets{HMACSecret: []byte{0x01}, CaptureKey: []byte{0x02}},
		},
		{
			name:    "missing capture key",
			hmacEnv: "01",
			want:    Secrets{HMACSecret: []byte{0x01}},
		},
		{
			name: "nothing configured",
			want: Secrets{},
		},
		{
			name:    "not hex",
			hmacEnv: "zz",
			keyEnv:  "02",
			wantErr: ErrConfiguration,
		},
		{
			name:    "broken yaml",
			file:    "hmac_secret: [\n",
			wantErr: ErrConfiguration,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(EnvHMACSecret, tc.hmacEnv)
			t.Setenv(EnvCaptureKey, tc.keyEnv)
			path := ""
			if tc.file != "" {
				path = writeKeyFile(t, tc.file)
			}
			got, err := LoadSecrets(path)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLoadSecretsMissingFile(t *testing.T) {
	_, err := LoadSecrets(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, ErrConfiguration)
}
