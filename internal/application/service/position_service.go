package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ibsnap/internal/application"
	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
	domainsvc "ibsnap/internal/domain/service"
)

// PortfolioService refreshes the aggregated portfolio snapshot.
type PortfolioService struct {
	session   port.BrokerageSession
	clock     port.Clock
	snapshots *SnapshotService
}

func NewPortfolioService(session port.BrokerageSession, clock port.Clock, snapshots *SnapshotService) *PortfolioService {
	return &PortfolioService{session: session, clock: clock, snapshots: snapshots}
}

// Refresh fetches positions and their valuations, aggregates them, pairs
// spreads and writes the rows as one portfolio entry. Without positions
// nothing is written; without valuations the rows are written unannotated.
func (s *PortfolioService) Refresh(ctx context.Context) error {
	positions, err := s.session.Positions(ctx)
	if err != nil {
		return fmt.Errorf("%w: positions: %v", application.ErrDataIncomplete, err)
	}

	annotations, err := s.session.Portfolio(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("portfolio valuations unavailable")
		annotations = nil
	}

	rows := domainsvc.DetectSpreads(domainsvc.Aggregate(positions, annotations))
	if err := s.snapshots.Save(ctx, model.KindPortfolio, "", rows, s.clock.Now()); err != nil {
		return err
	}

	log.Info().Int("positions", len(positions)).Int("rows", len(rows)).Msg("portfolio cache updated")
	return nil
}

// Latest returns the newest cached portfolio rows.
func (s *PortfolioService) Latest(ctx context.Context) ([]model.PortfolioRow, time.Time, bool, error) {
	var rows []model.PortfolioRow
	ts, ok, err := s.snapshots.Load(ctx, model.KindPortfolio, "", &rows)
	return rows, ts, ok, err
}
