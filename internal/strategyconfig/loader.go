package strategyconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/wonny/gapscan/internal/contracts"
)

// Load reads the YAML file and returns Config with raw bytes.
// Every failure wraps contracts.ErrConfig.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Config, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", contracts.ErrConfig, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, data, err
	}
	return cfg, data, nil
}

// Parse decodes YAML bytes over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	// defaults 먼저, YAML이 덮어씀 (명시적 false/0 보존)
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", contracts.ErrConfig, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrConfig, err)
	}
	return cfg, nil
}

// Default returns a Config holding only built-in defaults
func Default() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("%w: defaults: %v", contracts.ErrConfig, err)
	}
	cfg.Liquidity.Default = defaultThresholds()
	return cfg, nil
}

func defaultThresholds() Thresholds {
	require := true
	return Thresholds{
		MinPrice:        1.00,
		MinVolume:       100_000,
		MinAvgVolume:    200_000,
		MinDollarVolume: 500_000,
		RequirePrices:   &require,
	}
}

// Hash generates SHA256 hash from Config (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(cfg *Config) (string, error) {
	jsonBytes, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
