// Package stdlib is the built-in library loaded into the std namespace:
// string transforms, bcrypt items, expression checks, the schema decorators
// and the timeout middleware.
package stdlib

import (
	"github.com/rs/zerolog"

	"github.com/artpar/pipekit/core/namespace"
	"github.com/artpar/pipekit/ports"
)

// Library implements namespace.Library.
type Library struct {
	hasher ports.Hasher
	logger zerolog.Logger
	checks *checkCache
}

// New creates the standard library. The bcrypt items hash and verify
// through hasher.
func New(hasher ports.Hasher, logger zerolog.Logger) *Library {
	return &Library{
		hasher: hasher,
		logger: logger.With().Str("component", "stdlib").Logger(),
		checks: newCheckCache(),
	}
}

// Load defines every built-in symbol in std.
func (l *Library) Load(std *namespace.Namespace) error {
	loadStringItems(std)
	l.loadCryptoItems(std)
	l.loadCheckItem(std)
	loadDecorators(std)
	loadMiddlewares(std)

	l.logger.Debug().Int("symbols", len(std.Symbols())).Msg("standard library loaded")
	return nil
}

var _ namespace.Library = (*Library)(nil)
