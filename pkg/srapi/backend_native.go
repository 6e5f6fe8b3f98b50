//go:build !(js && wasm)

package srapi

import (
	"log/slog"

	"speedrun-api/internal/adapter/native"
	"speedrun-api/internal/domain"
	"speedrun-api/internal/infra/config"
)

func newDefaultBackend(tls config.TLSConfig, log *slog.Logger) (domain.Backend, error) {
	t, err := native.New(tls, log)
	if err != nil {
		return nil, err
	}
	return t, nil
}
