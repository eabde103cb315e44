package idm

import (
	"errors"
	"time"

	"github.com/CitoC/IDM-Service/jwt"
	"github.com/CitoC/IDM-Service/password"
	"github.com/CitoC/IDM-Service/token"
)

// Builder assembles an Engine from a Config and its storage dependencies.
// A Builder is single use.
type Builder struct {
	config Config

	tokenStore   token.Store
	accountStore AccountStore
	auditSink    AuditSink
	clock        func() time.Time

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithTokenStore sets the refresh token store. Required.
func (b *Builder) WithTokenStore(s token.Store) *Builder {
	b.tokenStore = s
	return b
}

// WithAccountStore sets the account store. Required.
func (b *Builder) WithAccountStore(s AccountStore) *Builder {
	b.accountStore = s
	return b
}

// WithAuditSink sets the sink that receives audit events when auditing is
// enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClock overrides the time source used for token lifetimes. Intended
// for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the counter registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, constructs every subsystem, and
// returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.tokenStore == nil {
		return nil, errors.New("token store required")
	}
	if b.accountStore == nil {
		return nil, errors.New("account store required")
	}

	engine := &Engine{
		config:       cfg,
		accountStore: b.accountStore,
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	kdf, err := password.NewKDF(password.Config{
		Iterations: cfg.Password.Iterations,
		SaltLength: cfg.Password.SaltLength,
		KeyLength:  cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.kdf = kdf

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		PrivateKey: cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:  cloneBytes(cfg.JWT.PublicKey),
		Issuer:     cfg.JWT.Issuer,
		Leeway:     cfg.JWT.Leeway,
		TimeFunc:   b.clock,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	var opts []token.Option
	if b.clock != nil {
		opts = append(opts, token.WithClock(b.clock))
	}
	tm, err := token.NewManager(b.tokenStore, token.Config{
		Window:      cfg.Refresh.Window,
		MaxLifetime: cfg.Refresh.MaxLifetime,
	}, opts...)
	if err != nil {
		return nil, err
	}
	engine.tokens = tm

	b.built = true

	return engine, nil
}
