//go:build !unix

package tlsio

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/credentials"
	"github.com/brickingsoft/tlsio/pkg/engine"
)

var errNoEngine = errors.Define("tlsio: no default engine on this platform")

var (
	defaultServerEngine EngineFactory = func(int, *credentials.Store) (engine.Session, error) {
		return nil, errNoEngine
	}
	defaultClientEngine EngineFactory = func(int, *credentials.Store) (engine.Session, error) {
		return nil, errNoEngine
	}
)
