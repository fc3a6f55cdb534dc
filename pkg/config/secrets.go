package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Secrets holds the two proprietary keys. Neither is shipped with the tool,
// the operator supplies them through the environment or a key file.
type Secrets struct {
	HMACSecret []byte
	CaptureKey []byte
}

type keyFile struct {
	HMACSecret string `yaml:"hmac_secret"`
	CaptureKey string `yaml:"capture_key"`
}

// LoadSecrets reads the key file at path (optional, "" skips it) and then
// applies environment overrides. A key that is configured nowhere stays nil,
// the component needing it reports ErrMissingKeyMaterial.
func LoadSecrets(path string) (Secrets, error) {
	var kf keyFile
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Secrets{}, fmt.Errorf("%w: reading key file: %w", ErrConfiguration, err)
		}
		if err := yaml.Unmarshal(raw, &kf); err != nil {
			return Secrets{}, fmt.Errorf("%w: parsing key file %s: %w", ErrConfiguration, path, err)
		}
	}
	if v := os.Getenv(EnvHMACSecret); v != "" {
		kf.HMACSecret = v
	}
	if v := os.Getenv(EnvCaptureKey); v != "" {
		kf.CaptureKey = v
	}

	var s Secrets
	var err error
	if s.HMACSecret, err = decodeKey("hmac_secret", kf.HMACSecret); err != nil {
		return Secrets{}, err
	}
	if s.CaptureKey, err = decodeKey("capture_key", kf.CaptureKey); err != nil {
		return Secrets{}, err
	}
	return s, nil
}

func decodeKey(name, value string) ([]byte, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not hex: %w", ErrConfiguration, name, err)
	}
	return key, nil
}
