package container

import (
	"time"

	"ibsnap/internal/application/port"
	"ibsnap/internal/application/service"
	"ibsnap/internal/application/usecase/refresh"
)

// Intervals are the refresh cadences of the scheduled jobs.
type Intervals struct {
	Session   time.Duration
	Quotes    time.Duration
	Portfolio time.Duration
	Account   time.Duration
}

// Container builds the application services lazily over one store and one
// brokerage session.
type Container struct {
	repo    port.Repository
	session port.BrokerageSession
	clock   port.Clock
	pricing service.PriceResolverConfig

	snapshotService  *service.SnapshotService
	priceResolver    *service.PriceResolver
	quoteService     *service.QuoteService
	portfolioService *service.PortfolioService
	accountService   *service.AccountService
	watchlistService *service.WatchlistService
}

func New(repo port.Repository, session port.BrokerageSession, clock port.Clock, pricing service.PriceResolverConfig) *Container {
	return &Container{
		repo:    repo,
		session: session,
		clock:   clock,
		pricing: pricing,
	}
}

func (c *Container) Repository() port.Repository {
	return c.repo
}

func (c *Container) Session() port.BrokerageSession {
	return c.session
}

func (c *Container) SnapshotService() *service.SnapshotService {
	if c.snapshotService == nil {
		c.snapshotService = service.NewSnapshotService(c.repo)
	}
	return c.snapshotService
}

func (c *Container) PriceResolver() *service.PriceResolver {
	if c.priceResolver == nil {
		c.priceResolver = service.NewPriceResolver(c.session, c.clock, c.pricing)
	}
	return c.priceResolver
}

func (c *Container) QuoteService() *service.QuoteService {
	if c.quoteService == nil {
		c.quoteService = service.NewQuoteService(c.repo, c.PriceResolver(), c.SnapshotService())
	}
	return c.quoteService
}

func (c *Container) PortfolioService() *service.PortfolioService {
	if c.portfolioService == nil {
		c.portfolioService = service.NewPortfolioService(c.session, c.clock, c.SnapshotService())
	}
	return c.portfolioService
}

func (c *Container) AccountService() *service.AccountService {
	if c.accountService == nil {
		c.accountService = service.NewAccountService(c.session, c.clock, c.SnapshotService())
	}
	return c.accountService
}

func (c *Container) WatchlistService() *service.WatchlistService {
	if c.watchlistService == nil {
		c.watchlistService = service.NewWatchlistService(c.repo, c.QuoteService())
	}
	return c.watchlistService
}

// Jobs is the scheduler's job table. The session job comes first so a
// dropped session is restored before the refresh jobs of the same tick.
func (c *Container) Jobs(iv Intervals) []refresh.Job {
	return []refresh.Job{
		{Name: refresh.JobSession, Interval: iv.Session, Action: refresh.SessionAction(c.session)},
		{Name: refresh.JobQuotes, Interval: iv.Quotes, Action: c.QuoteService().Refresh, NeedsSession: true},
		{Name: refresh.JobPortfolio, Interval: iv.Portfolio, Action: c.PortfolioService().Refresh, NeedsSession: true},
		{Name: refresh.JobAccount, Interval: iv.Account, Action: c.AccountService().Refresh, NeedsSession: true},
	}
}

func (c *Container) Close() error {
	return c.repo.Close()
}
