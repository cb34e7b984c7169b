package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ibsnap/internal/application"
	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

// AccountService refreshes one account snapshot per managed account.
type AccountService struct {
	session   port.BrokerageSession
	clock     port.Clock
	snapshots *SnapshotService
}

func NewAccountService(session port.BrokerageSession, clock port.Clock, snapshots *SnapshotService) *AccountService {
	return &AccountService{session: session, clock: clock, snapshots: snapshots}
}

func (s *AccountService) Refresh(ctx context.Context) error {
	accounts, err := s.session.ManagedAccounts(ctx)
	if err != nil {
		return fmt.Errorf("%w: managed accounts: %v", application.ErrDataIncomplete, err)
	}
	values, err := s.session.AccountValues(ctx)
	if err != nil {
		return fmt.Errorf("%w: account values: %v", application.ErrDataIncomplete, err)
	}

	byAccount := GroupAccountValues(values)
	now := s.clock.Now()

	var firstErr error
	for _, acct := range accounts {
		snap := model.AccountSnapshot{
			ManagedAccounts: accounts,
			Values:          byAccount[acct],
		}
		if snap.Values == nil {
			snap.Values = map[string]map[string]string{}
		}
		if err := s.snapshots.Save(ctx, model.KindAccount, acct, snap, now); err != nil {
			log.Error().Str("account", acct).Err(err).Msg("account write failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr == nil {
		log.Info().Int("accounts", len(accounts)).Msg("account cache updated")
	}
	return firstErr
}

// Snapshot returns the cached snapshot of account.
func (s *AccountService) Snapshot(ctx context.Context, account string) (model.AccountSnapshot, time.Time, bool, error) {
	var snap model.AccountSnapshot
	ts, ok, err := s.snapshots.Load(ctx, model.KindAccount, account, &snap)
	return snap, ts, ok, err
}

// GroupAccountValues indexes values by account, tag and currency.
func GroupAccountValues(values []model.AccountValue) map[string]map[string]map[string]string {
	out := make(map[string]map[string]map[string]string)
	for _, v := range values {
		tags, ok := out[v.Account]
		if !ok {
			tags = make(map[string]map[string]string)
			out[v.Account] = tags
		}
		byCurrency, ok := tags[v.Tag]
		if !ok {
			byCurrency = make(map[string]string)
			tags[v.Tag] = byCurrency
		}
		byCurrency[v.Currency] = v.Value
	}
	return out
}
