package tlsio

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/tlsio/pkg/credentials"
	"github.com/brickingsoft/tlsio/pkg/engine"
)

// EngineFactory creates an engine session bound to a connected descriptor.
type EngineFactory func(fd int, store *credentials.Store) (engine.Session, error)

type Options struct {
	Loop         EventLoop
	ServerEngine EngineFactory
	ClientEngine EngineFactory
}

type Option func(options *Options) (err error)

// WithEventLoop runs the session on the given loop instead of the default
// loop started by Startup.
func WithEventLoop(loop EventLoop) Option {
	return func(options *Options) (err error) {
		options.Loop = loop
		return
	}
}

// WithServerEngine replaces the server role engine factory.
func WithServerEngine(factory EngineFactory) Option {
	return func(options *Options) (err error) {
		options.ServerEngine = factory
		return
	}
}

// WithClientEngine replaces the client role engine factory.
func WithClientEngine(factory EngineFactory) Option {
	return func(options *Options) (err error) {
		options.ClientEngine = factory
		return
	}
}

func makeOptions(options []Option) (*Options, error) {
	opts := &Options{
		ServerEngine: defaultServerEngine,
		ClientEngine: defaultClientEngine,
	}
	for _, o := range options {
		if err := o(opts); err != nil {
			return nil, err
		}
	}
	if opts.Loop == nil {
		opts.Loop = DefaultLoop()
	}
	if opts.Loop == nil {
		return nil, errors.New("tlsio: session needs an event loop, call Startup or use WithEventLoop", errors.WithWrap(ErrNoEventLoop))
	}
	return opts, nil
}
