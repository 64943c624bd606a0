//go:build unix

package tlsio

import (
	"github.com/brickingsoft/tlsio/pkg/engine/stdtls"
)

var (
	defaultServerEngine EngineFactory = stdtls.Server
	defaultClientEngine EngineFactory = stdtls.Client
)
