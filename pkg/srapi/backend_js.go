//go:build js && wasm

package srapi

import (
	"log/slog"

	"speedrun-api/internal/adapter/embedded"
	"speedrun-api/internal/domain"
	"speedrun-api/internal/infra/config"
)

func newDefaultBackend(_ config.TLSConfig, log *slog.Logger) (domain.Backend, error) {
	return embedded.New(embedded.NewJSHost(), log), nil
}
