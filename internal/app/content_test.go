package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/google/go-cmp/cmp"
)

func TestSingle_CacheHitMakesNoRemoteCalls(t *testing.T) {
	cached := domain.Content{Title: "Cached", Viewer: domain.Viewer{Kind: domain.ViewerImages, Images: []domain.Image{{Size: 1, Kid: "x"}}}}
	h := newHarness(t, domain.Tables{
		Accounts: accountsTable(1),
		Series: map[int64]domain.SeriesRecord{
			10: {Singles: map[int64]domain.Content{5: cached}},
		},
	}, longCooldown)

	for i := 0; i < 3; i++ {
		got, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 5, WaitFree: i%2 == 0})
		if err != nil {
			t.Fatalf("single: %v", err)
		}
		if diff := cmp.Diff(cached, got); diff != "" {
			t.Fatalf("content mismatch (-want +got):\n%s", diff)
		}
	}
	if n := h.remote.total(); n != 0 {
		t.Fatalf("expected no remote calls, got %d", n)
	}
}

func TestSingle_FreePathUsesAnonymousSessionAndCaches(t *testing.T) {
	h := newHarness(t, domain.Tables{Accounts: accountsTable(1)}, longCooldown)
	req := SingleRequest{SeriesID: 10, SingleID: 5, Free: true}

	got, err := h.content.Single(context.Background(), req)
	if err != nil {
		t.Fatalf("single: %v", err)
	}
	if got.Title != "Episode" || len(got.Viewer.Images) != 1 || got.Viewer.Images[0].Kid != "k1" {
		t.Fatalf("unexpected content: %+v", got)
	}
	calls := h.remote.callsTo("Viewer")
	if len(calls) != 1 || calls[0].accountID != 0 {
		t.Fatalf("expected one anonymous viewer call, got %+v", calls)
	}

	if _, err := h.content.Single(context.Background(), req); err != nil {
		t.Fatalf("single (cached): %v", err)
	}
	if n := h.remote.count("Viewer"); n != 1 {
		t.Fatalf("expected cached second read, got %d viewer calls", n)
	}
}

func TestSingle_PermanentUsesFirstQualifyingAccount(t *testing.T) {
	h := newHarness(t, domain.Tables{
		Accounts: accountsTable(1, 2, 3),
		Series: map[int64]domain.SeriesRecord{
			10: {Tickets: map[int64]domain.Ticket{
				1: {Permanent: 0, WaitFreeAt: domain.NoWaitFree},
				2: {Permanent: 2, WaitFreeAt: domain.NoWaitFree},
				3: {Permanent: 5, WaitFreeAt: domain.NoWaitFree},
			}},
		},
	}, longCooldown)
	h.remote.ready[2] = ports.Readiness{
		Status:  ports.TicketStatus{OwnCount: 2},
		Process: ProcessAlreadyConfirmed,
	}

	if _, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7}); err != nil {
		t.Fatalf("single: %v", err)
	}

	ready := h.remote.callsTo("ReadyToUseTicket")
	if len(ready) != 1 || ready[0].accountID != 2 {
		t.Fatalf("expected readiness check on account 2 only, got %+v", ready)
	}
	if n := h.remote.count("UseTicket"); n != 0 {
		t.Fatalf("already confirmed: expected no redemption, got %d", n)
	}
	if h.finder.Scans() != 0 {
		t.Fatalf("expected no scan, got %d", h.finder.Scans())
	}
	ticket, _ := h.store.Series(10).Ticket(2)
	if ticket.Permanent != 2 {
		t.Fatalf("expected ledger to keep 2 permanent tickets, got %d", ticket.Permanent)
	}
	if _, ok := h.store.Series(10).Content(7); !ok {
		t.Fatalf("expected content to be cached")
	}
}

func TestSingle_RentalRedemptionDecrementsLedger(t *testing.T) {
	h := newHarness(t, domain.Tables{
		Accounts: accountsTable(1),
		Series: map[int64]domain.SeriesRecord{
			10: {Tickets: map[int64]domain.Ticket{1: {Permanent: 3, WaitFreeAt: domain.NoWaitFree}}},
		},
	}, longCooldown)
	h.remote.ready[1] = ports.Readiness{
		Status:     ports.TicketStatus{OwnCount: 1, RentalCount: 2},
		Process:    ProcessForceUseRentalTicket,
		RentalType: "RentSingle",
	}

	if _, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7}); err != nil {
		t.Fatalf("single: %v", err)
	}
	use := h.remote.callsTo("UseTicket")
	if len(use) != 1 || use[0].arg != "RentSingle" {
		t.Fatalf("expected one RentSingle redemption, got %+v", use)
	}
	ticket, _ := h.store.Series(10).Ticket(1)
	if ticket.Permanent != 2 {
		t.Fatalf("expected 1 own + 1 rental left, got %d", ticket.Permanent)
	}
}

func TestSingle_OwnRedemption(t *testing.T) {
	h := newHarness(t, domain.Tables{
		Accounts: accountsTable(4),
		Series: map[int64]domain.SeriesRecord{
			10: {Tickets: map[int64]domain.Ticket{4: {Permanent: 1, WaitFreeAt: domain.NoWaitFree}}},
		},
	}, longCooldown)
	h.remote.ready[4] = ports.Readiness{
		Status:  ports.TicketStatus{OwnCount: 1},
		Process: ProcessForceUseOwnTicket,
		OwnType: "OwnSingle",
	}

	if _, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7}); err != nil {
		t.Fatalf("single: %v", err)
	}
	ticket, _ := h.store.Series(10).Ticket(4)
	if ticket.Permanent != 0 {
		t.Fatalf("expected no permanent ticket left, got %d", ticket.Permanent)
	}
}

func TestSingle_UnknownProcessFails(t *testing.T) {
	h := newHarness(t, domain.Tables{
		Accounts: accountsTable(1),
		Series: map[int64]domain.SeriesRecord{
			10: {Tickets: map[int64]domain.Ticket{1: {Permanent: 1, WaitFreeAt: domain.NoWaitFree}}},
		},
	}, longCooldown)
	h.remote.ready[1] = ports.Readiness{Process: "SomethingNew"}

	_, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7})
	var upe *ports.UnknownProcessError
	if !errors.As(err, &upe) || upe.Process != "SomethingNew" {
		t.Fatalf("expected UnknownProcessError, got %v", err)
	}
	if Classify(err) != "unknown_process" {
		t.Fatalf("unexpected class %q", Classify(err))
	}
	if _, ok := h.store.Series(10).Content(7); ok {
		t.Fatalf("failed request must not cache content")
	}
}

func TestSingle_CooldownWhenScanFindsNothing(t *testing.T) {
	h := newHarness(t, domain.Tables{Accounts: accountsTable(1, 2)}, longCooldown)

	_, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7})
	if !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown, got %v", err)
	}
	if h.finder.Scans() != 1 {
		t.Fatalf("expected one scan, got %d", h.finder.Scans())
	}
	if n := h.remote.count("MyTickets"); n != 2 {
		t.Fatalf("expected every account refreshed once, got %d", n)
	}

	// Pendant le cooldown, aucune nouvelle requête distante de scan.
	_, err = h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 8})
	if !errors.Is(err, ErrCooldown) {
		t.Fatalf("expected ErrCooldown during cooldown, got %v", err)
	}
	if h.finder.Scans() != 1 || h.remote.count("MyTickets") != 2 {
		t.Fatalf("cooldown must not rescan: scans=%d mytickets=%d", h.finder.Scans(), h.remote.count("MyTickets"))
	}
}

func TestSingle_ExhaustedAfterTwoAttempts(t *testing.T) {
	// Le scan trouve un ticket permanent mais la requête est en mode wait-free:
	// la seconde tentative échoue aussi et on s'arrête là.
	h := newHarness(t, domain.Tables{Accounts: accountsTable(1)}, longCooldown)
	h.remote.status[1] = ports.TicketStatus{OwnCount: 3}

	_, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7, WaitFree: true})
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if h.finder.Scans() != 1 {
		t.Fatalf("expected exactly one scan, got %d", h.finder.Scans())
	}
	if n := h.remote.count("UseTicket"); n != 0 {
		t.Fatalf("expected no redemption, got %d", n)
	}
	ticket, ok := h.store.Series(10).Ticket(1)
	if !ok || ticket.Permanent != 3 {
		t.Fatalf("expected scan to record 3 permanent tickets, got %+v", ticket)
	}
}

func TestSingle_PermanentAfterRescan(t *testing.T) {
	h := newHarness(t, domain.Tables{Accounts: accountsTable(1, 2)}, longCooldown)
	h.remote.status[2] = ports.TicketStatus{RentalCount: 1}
	h.remote.ready[2] = ports.Readiness{
		Status:     ports.TicketStatus{RentalCount: 1},
		Process:    ProcessAskTicketChoice,
		RentalType: "RentSingle",
	}

	if _, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7}); err != nil {
		t.Fatalf("single: %v", err)
	}
	if h.finder.Scans() != 1 {
		t.Fatalf("expected one scan, got %d", h.finder.Scans())
	}
	if n := h.remote.count("CheckFreeTicket"); n != 2 {
		t.Fatalf("expected free ticket check for both new accounts, got %d", n)
	}
	use := h.remote.callsTo("UseTicket")
	if len(use) != 1 || use[0].accountID != 2 {
		t.Fatalf("expected redemption on account 2, got %+v", use)
	}
}

func TestSingle_WaitFreeTriesReadyAccountsInOrder(t *testing.T) {
	past := time.Now().Add(-time.Hour).Unix()
	h := newHarness(t, domain.Tables{
		Accounts: accountsTable(1, 2, 3),
		Series: map[int64]domain.SeriesRecord{
			10: {Tickets: map[int64]domain.Ticket{
				1: {WaitFreeAt: past},
				2: {WaitFreeAt: past},
				3: {WaitFreeAt: domain.NoWaitFree, Permanent: 4},
			}},
		},
	}, longCooldown)
	h.remote.useErr[1] = &ports.RemoteProtocolError{Messages: []string{"already used"}}
	h.remote.useResult[2] = ports.UseResult{WaitFreeChargedAt: "2030-01-02T03:04:05"}

	if _, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7, WaitFree: true}); err != nil {
		t.Fatalf("single: %v", err)
	}
	use := h.remote.callsTo("UseTicket")
	if len(use) != 2 || use[0].accountID != 1 || use[1].accountID != 2 || use[1].arg != TicketRentWaitFree {
		t.Fatalf("unexpected redemptions: %+v", use)
	}
	ticket, _ := h.store.Series(10).Ticket(2)
	want := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC).Unix()
	if ticket.WaitFreeAt != want {
		t.Fatalf("expected wait-free pushed to %d, got %d", want, ticket.WaitFreeAt)
	}
	viewer := h.remote.callsTo("Viewer")
	if len(viewer) != 1 || viewer[0].accountID != 2 {
		t.Fatalf("expected content read with account 2, got %+v", viewer)
	}
}

func TestSingle_ReleasesGateSlot(t *testing.T) {
	h := newHarness(t, domain.Tables{Accounts: accountsTable(1)}, longCooldown)
	h.content.gate = NewRequestGate(1)

	for i := int64(0); i < 3; i++ {
		if _, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: i, Free: true}); err != nil {
			t.Fatalf("single %d: %v", i, err)
		}
	}
	if n := h.content.gate.InFlight(); n != 0 {
		t.Fatalf("expected gate released, in flight=%d", n)
	}
}

func TestSingle_CallerCancelAfterRedemptionStillCaches(t *testing.T) {
	past := time.Now().Add(-time.Hour).Unix()
	h := newHarness(t, domain.Tables{
		Accounts: accountsTable(1),
		Series: map[int64]domain.SeriesRecord{
			10: {Tickets: map[int64]domain.Ticket{1: {WaitFreeAt: past}}},
		},
	}, longCooldown)
	h.remote.useResult[1] = ports.UseResult{WaitFreeChargedAt: "2030-01-02T03:04:05"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Le client part juste après la consommation du ticket.
	h.remote.afterUse = cancel

	_, err := h.content.Single(ctx, SingleRequest{SeriesID: 10, SingleID: 7, WaitFree: true})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("single: %v", err)
	}

	srs := h.store.Series(10)
	waitFor(t, "content cached", func() bool {
		_, ok := srs.Content(7)
		return ok
	})
	if n := h.remote.count("UseTicket"); n != 1 {
		t.Fatalf("expected one redemption, got %d", n)
	}
	viewer := h.remote.callsTo("Viewer")
	if len(viewer) != 1 || viewer[0].accountID != 1 {
		t.Fatalf("expected content read with account 1, got %+v", viewer)
	}

	// Une nouvelle requête est servie depuis le cache.
	if _, err := h.content.Single(context.Background(), SingleRequest{SeriesID: 10, SingleID: 7, WaitFree: true}); err != nil {
		t.Fatalf("single (cached): %v", err)
	}
	if n := h.remote.count("UseTicket"); n != 1 {
		t.Fatalf("cached read must not redeem again, got %d redemptions", n)
	}
}

func TestSingle_RescanErrorIsRecorded(t *testing.T) {
	h := newHarness(t, domain.Tables{Accounts: accountsTable(1)}, longCooldown)
	rec := &recordingStats{}
	h.content.stats = rec
	h.remote.myTicketsGate = make(chan struct{})
	defer close(h.remote.myTicketsGate)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.content.single(ctx, SingleRequest{SeriesID: 10, SingleID: 7})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if diff := cmp.Diff([]ports.Outcome{ports.OutcomeError}, rec.outcomes()); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
}
