package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/omnikit/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults generates the JWT signing secret when none is configured and returns
// the config keys it generated. Generated values are never returned.
//
// The vault key is never generated: a lost key makes every stored credential unreadable.
func ApplyRuntimeDefaults(cfg *Config) ([]string, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var generated []string
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated = append(generated, "auth.jwt.secret")
	}
	return generated, nil
}
