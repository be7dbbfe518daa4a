package checks

import (
	"context"
	"errors"
	"time"

	"github.com/charlesng35/omnikit/internal/monitoring"
)

const vaultProbeValue = "omnikit-health"

// Sealer is the subset of the vault used to store credentials.
type Sealer interface {
	SealString(value string) (string, error)
	OpenString(ciphertext string) (string, error)
}

// Vault seals and reopens a fixed value so a broken cipher fails readiness.
func Vault(sealer Sealer) monitoring.Check {
	return monitoring.NewCheck("vault", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if sealer == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "vault not configured"}
		}

		sealed, err := sealer.SealString(vaultProbeValue)
		if err != nil {
			return monitoring.ResultFromError(err, time.Since(start))
		}
		opened, err := sealer.OpenString(sealed)
		if err == nil && opened != vaultProbeValue {
			err = errors.New("vault round trip mismatch")
		}
		return monitoring.ResultFromError(err, time.Since(start))
	})
}
