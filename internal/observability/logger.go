package observability

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger returns the global logger tagged with the calling component.
// Configure the global logger through internal/logging first.
func Logger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
