package container

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"ibsnap/internal/application/port"
	"ibsnap/internal/infrastructure/config"
	"ibsnap/internal/infrastructure/storage/composite"
	memoryrepo "ibsnap/internal/infrastructure/storage/memory"
	pgrepo "ibsnap/internal/infrastructure/storage/postgres"
	redisrepo "ibsnap/internal/infrastructure/storage/redis"
	sqliterepo "ibsnap/internal/infrastructure/storage/sqlite"
)

// Container owns the storage backends. The primary backend (sqlite, then
// postgres, then memory) serves reads and the watchlist; every other enabled
// backend mirrors cache writes.
type Container struct {
	cfg         *config.Config
	redisClient *redis.Client
	redisRepo   *redisrepo.Repo
	primary     port.Repository
	mirrors     []port.CacheStore
	store       *composite.Repo
	closeOnce   sync.Once
	closerChain []func() error
}

func New(cfg *config.Config) (*Container, error) {
	c := &Container{
		cfg:         cfg,
		closerChain: make([]func() error, 0),
	}
	if err := c.initStorage(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.store = composite.New(c.primary, c.mirrors...)
	return c, nil
}

func (c *Container) initStorage() error {
	st := c.cfg.Storage

	if st.SQLite.Enabled {
		if err := c.initSQLite(); err != nil {
			return fmt.Errorf("sqlite init failed: %w", err)
		}
	}
	if st.Postgres.Enabled {
		if err := c.initPostgres(); err != nil {
			return fmt.Errorf("postgres init failed: %w", err)
		}
	}
	if st.Memory.Enabled || c.primary == nil {
		c.addBackend("memory", memoryrepo.New())
	}
	if st.Redis.Enabled {
		if err := c.initRedis(); err != nil {
			return fmt.Errorf("redis init failed: %w", err)
		}
	}
	return nil
}

// addBackend makes repo the primary when none is set yet, otherwise a mirror.
func (c *Container) addBackend(name string, repo port.Repository) {
	if c.primary == nil {
		c.primary = repo
		log.Info().Str("backend", name).Msg("primary cache store")
		return
	}
	c.mirrors = append(c.mirrors, repo)
	log.Info().Str("backend", name).Msg("mirror cache store")
}

func (c *Container) initSQLite() error {
	repo, err := sqliterepo.New(c.cfg.Storage.SQLite.Path)
	if err != nil {
		return err
	}
	c.addBackend("sqlite", repo)
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing sqlite connection")
		return repo.Close()
	})

	log.Info().Str("path", c.cfg.Storage.SQLite.Path).Msg("sqlite initialized")
	return nil
}

func (c *Container) initPostgres() error {
	repo, err := pgrepo.New(c.cfg.Storage.Postgres.DSN)
	if err != nil {
		return err
	}
	c.addBackend("postgres", repo)
	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing postgres connection")
		return repo.Close()
	})

	log.Info().Msg("postgres initialized")
	return nil
}

func (c *Container) initRedis() error {
	rc := c.cfg.Storage.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.redisClient = rdb
	c.redisRepo = redisrepo.New(rdb, rc.Prefix, time.Duration(rc.TTLSeconds)*time.Second, rc.Channel)
	c.mirrors = append(c.mirrors, c.redisRepo)

	c.closerChain = append(c.closerChain, func() error {
		log.Info().Msg("closing redis connection")
		return rdb.Close()
	})

	log.Info().Str("addr", rc.Addr).Int("db", rc.DB).Msg("redis initialized")
	return nil
}

func (c *Container) Config() *config.Config { return c.cfg }

// Store is the composite of all enabled backends.
func (c *Container) Store() port.Repository { return c.store }

// RedisRepo is nil unless redis is enabled.
func (c *Container) RedisRepo() *redisrepo.Repo { return c.redisRepo }

// Close releases resources in reverse order of creation.
func (c *Container) Close() error {
	var err error
	c.closeOnce.Do(func() {
		for i := len(c.closerChain) - 1; i >= 0; i-- {
			if e := c.closerChain[i](); e != nil {
				log.Error().Err(e).Msg("error closing resource")
				if err == nil {
					err = e
				}
			}
		}
		log.Info().Msg("container closed")
	})
	return err
}
