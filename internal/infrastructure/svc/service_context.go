package svc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	appcontainer "ibsnap/internal/application/container"
	"ibsnap/internal/application/service"
	"ibsnap/internal/application/usecase/refresh"
	"ibsnap/internal/infrastructure/clock"
	"ibsnap/internal/infrastructure/config"
	infracontainer "ibsnap/internal/infrastructure/container"
	"ibsnap/internal/infrastructure/gateway"
	redisrepo "ibsnap/internal/infrastructure/storage/redis"
)

// ServiceContext wires storage, the gateway session and the application
// services. It is the only place that knows the concrete adapters.
type ServiceContext struct {
	Ctx    context.Context
	Config *config.Config

	infra   *infracontainer.Container
	session *gateway.Session
	app     *appcontainer.Container

	closeOnce sync.Once
}

func New(ctx context.Context, cfg *config.Config) (*ServiceContext, error) {
	infra, err := infracontainer.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageInitFailed, err)
	}

	session := gateway.NewSession(gateway.Config{
		BaseURL:      cfg.Gateway.BaseURL,
		WsURL:        cfg.Gateway.WsURL,
		InsecureTLS:  cfg.Gateway.InsecureTLS,
		Timeout:      time.Duration(cfg.Gateway.TimeoutSec) * time.Second,
		QualifyCache: time.Duration(cfg.Gateway.QualifyCacheMin) * time.Minute,
	})

	app := appcontainer.New(infra.Store(), session, clock.System{}, service.PriceResolverConfig{
		SettleDelay:   cfg.SettleDelay(),
		HistoryPeriod: cfg.Refresh.HistoryPeriod,
		HistoryBar:    cfg.Refresh.HistoryBar,
	})

	return &ServiceContext{
		Ctx:     ctx,
		Config:  cfg,
		infra:   infra,
		session: session,
		app:     app,
	}, nil
}

func (sc *ServiceContext) App() *appcontainer.Container { return sc.app }

// RedisRepo is nil unless redis is enabled.
func (sc *ServiceContext) RedisRepo() *redisrepo.Repo { return sc.infra.RedisRepo() }

// ConnectSession makes one connection attempt. Failure is not fatal: the
// session job keeps retrying.
func (sc *ServiceContext) ConnectSession(ctx context.Context) {
	if err := sc.session.Connect(ctx); err != nil {
		log.Warn().Err(err).Str("gateway", sc.Config.Gateway.BaseURL).Msg("initial gateway connect failed, will retry")
	}
}

// BuildSchedulerDeps assembles the refresh scheduler's job table.
func (sc *ServiceContext) BuildSchedulerDeps() refresh.SchedulerDeps {
	return refresh.SchedulerDeps{
		Session: sc.session,
		Clock:   clock.System{},
		Tick:    sc.Config.Tick(),
		Jobs: sc.app.Jobs(appcontainer.Intervals{
			Session:   sc.Config.SessionInterval(),
			Quotes:    sc.Config.QuotesInterval(),
			Portfolio: sc.Config.PortfolioInterval(),
			Account:   sc.Config.AccountInterval(),
		}),
	}
}

// Close disconnects the gateway session, then closes storage. Safe to call
// more than once.
func (sc *ServiceContext) Close() error {
	var err error
	sc.closeOnce.Do(func() {
		if e := sc.session.Disconnect(); e != nil {
			log.Error().Err(e).Msg("error disconnecting gateway session")
		}
		err = sc.infra.Close()
	})
	return err
}
