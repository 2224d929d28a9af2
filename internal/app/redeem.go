package app

import (
	"context"
	"encoding/json"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

// Workflows de rédemption renvoyés par readyToUseTicket.
const (
	ProcessForceUseRentalTicket = "ForceUseRentalTicket"
	ProcessAskTicketChoice      = "AskTicketChoice"
	ProcessForceUseOwnTicket    = "ForceUseOwnTicket"
	ProcessAlreadyConfirmed     = "AlreadyConfirmed"
)

const TicketRentWaitFree = "RentWaitFree"

type redeemEvent struct {
	SeriesID   int64  `json:"seriesId"`
	SingleID   int64  `json:"singleId"`
	AccountID  int64  `json:"accountId"`
	TicketType string `json:"ticketType"`
}

// useTicket consomme un ticket du compte et reporte le wait-free renvoyé.
func (s *ContentService) useTicket(ctx context.Context, session ports.Doer, srs *Series, req SingleRequest, accountID int64, ticketType string) error {
	res, err := s.remote.UseTicket(ctx, session, req.SingleID, ticketType)
	if err != nil {
		return err
	}
	if res.WaitFreeChargedAt != "" {
		waitFreeAt, err := waitFreeFrom(res.WaitFreeChargedAt)
		if err != nil {
			return err
		}
		srs.UpsertTicket(accountID, func(t *domain.Ticket) { t.WaitFreeAt = waitFreeAt })
	}
	s.publish("ticket.redeemed", redeemEvent{SeriesID: req.SeriesID, SingleID: req.SingleID, AccountID: accountID, TicketType: ticketType})
	return nil
}

// tryWaitFree essaie, dans l'ordre, chaque compte dont le wait-free est prêt.
func (s *ContentService) tryWaitFree(ctx context.Context, srs *Series, req SingleRequest) (domain.Content, int64, bool, error) {
	now := s.now().Unix()
	candidates := srs.Candidates(func(t domain.Ticket) bool { return t.WaitFreeReady(now) })
	for _, accountID := range candidates {
		logger := s.logger.With().Int64("series_id", req.SeriesID).Int64("account_id", accountID).Logger()
		session, err := s.store.Session(accountID)
		if err != nil {
			logger.Warn().Err(err).Msg("wait-free: no session")
			continue
		}
		if err := s.useTicket(ctx, session, srs, req, accountID, TicketRentWaitFree); err != nil {
			logger.Warn().Err(err).Msg("wait-free redemption failed")
			continue
		}
		content, err := s.fetch(ctx, session, srs, req)
		return content, accountID, true, err
	}
	return domain.Content{}, 0, false, nil
}

// tryPermanent utilise le premier compte ayant des tickets permanents.
func (s *ContentService) tryPermanent(ctx context.Context, srs *Series, req SingleRequest, checked map[int64]struct{}) (domain.Content, int64, bool, error) {
	candidates := srs.Candidates(func(t domain.Ticket) bool { return t.Permanent > 0 })
	if len(candidates) == 0 {
		return domain.Content{}, 0, false, nil
	}
	accountID := candidates[0]
	logger := s.logger.With().Int64("series_id", req.SeriesID).Int64("account_id", accountID).Logger()

	session, err := s.store.Session(accountID)
	if err != nil {
		return domain.Content{}, 0, false, err
	}
	ready, err := s.remote.ReadyToUseTicket(ctx, session, req.SeriesID, req.SingleID)
	if err != nil {
		return domain.Content{}, 0, false, err
	}

	status := ready.Status
	switch ready.Process {
	case ProcessForceUseRentalTicket, ProcessAskTicketChoice:
		if ready.RentalType != "" {
			if err := s.useTicket(ctx, session, srs, req, accountID, ready.RentalType); err != nil {
				return domain.Content{}, 0, false, err
			}
			status.RentalCount--
		}
	case ProcessForceUseOwnTicket:
		if ready.OwnType != "" {
			if err := s.useTicket(ctx, session, srs, req, accountID, ready.OwnType); err != nil {
				return domain.Content{}, 0, false, err
			}
			status.OwnCount--
		}
	case ProcessAlreadyConfirmed:
	default:
		logger.Error().Str("process", ready.Process).Msg("unknown redemption process")
		return domain.Content{}, 0, false, &ports.UnknownProcessError{Process: ready.Process}
	}

	waitFreeAt, err := waitFreeFrom(status.WaitFreeChargedAt)
	if err != nil {
		return domain.Content{}, 0, false, err
	}
	ticket := domain.LedgerFrom(status.OwnCount, status.RentalCount, waitFreeAt, s.now().Unix())
	srs.UpsertTicket(accountID, func(t *domain.Ticket) { *t = ticket })
	checked[accountID] = struct{}{}

	content, err := s.fetch(ctx, session, srs, req)
	return content, accountID, true, err
}

func (s *ContentService) publish(topic string, payload any) {
	if s.bus == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	s.bus.Publish(topic, b)
}
