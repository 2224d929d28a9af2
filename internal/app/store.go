package app

import (
	"fmt"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
)

// Store contient l'état partagé: comptes et séries.
//
// Règle d'usage: les closures passées à With*/Upsert* ne font jamais d'I/O.
// Ce dont on a besoin après un appel distant est copié avant, et le slot est
// repris ensuite pour appliquer la mutation.
type Store struct {
	accounts *shardedMap[accountState]
	series   *shardedMap[*Series]
	sessions ports.SessionFactory
}

type accountState struct {
	acc     domain.Account
	session ports.Doer
}

func NewStore(tables domain.Tables, sessions ports.SessionFactory) *Store {
	s := &Store{
		accounts: newShardedMap[accountState](defaultShardCount),
		series:   newShardedMap[*Series](defaultShardCount),
		sessions: sessions,
	}
	for id, acc := range tables.Accounts {
		acc.Normalize()
		s.accounts.put(id, accountState{acc: acc})
	}
	for id, rec := range tables.Series {
		s.series.put(id, seriesFromRecord(rec))
	}
	return s
}

func accountNotFound(id int64) error {
	return fmt.Errorf("account %d does not exist: %w", id, ports.ErrNotFound)
}

// WithAccount donne un accès exclusif au compte pendant fn.
func (s *Store) WithAccount(id int64, fn func(acc *domain.Account) error) error {
	sl, ok := s.accounts.get(id)
	if !ok {
		return accountNotFound(id)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return fn(&sl.v.acc)
}

func (s *Store) Account(id int64) (domain.Account, error) {
	var out domain.Account
	err := s.WithAccount(id, func(acc *domain.Account) error {
		out = *acc
		return nil
	})
	return out, err
}

func (s *Store) AccountIDs() []int64 {
	return s.accounts.keys()
}

// Session renvoie le handle de transport du compte, construit au premier appel.
func (s *Store) Session(id int64) (ports.Doer, error) {
	sl, ok := s.accounts.get(id)
	if !ok {
		return nil, accountNotFound(id)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.v.session != nil {
		return sl.v.session, nil
	}
	if s.sessions == nil {
		return nil, fmt.Errorf("account %d: no session factory", id)
	}
	session, err := s.sessions(ports.Identity{
		AccountID: id,
		Agent:     sl.v.acc.Agent,
		Proxy:     sl.v.acc.Proxy,
		Token:     accountToken{store: s, id: id},
	})
	if err != nil {
		return nil, fmt.Errorf("account %d: build session: %w", id, err)
	}
	sl.v.session = session
	return session, nil
}

// Series renvoie la série, créée vide si inconnue.
func (s *Store) Series(id int64) *Series {
	sl := s.series.getOrCreate(id, newSeries)
	return sl.v
}

// Snapshot copie toutes les tables, chaque slot sous son propre verrou.
func (s *Store) Snapshot() domain.Tables {
	out := domain.Tables{
		Accounts: make(map[int64]domain.Account),
		Series:   make(map[int64]domain.SeriesRecord),
	}
	for _, id := range s.accounts.keys() {
		if acc, err := s.Account(id); err == nil {
			out.Accounts[id] = acc
		}
	}
	for _, id := range s.series.keys() {
		if sl, ok := s.series.get(id); ok {
			out.Series[id] = sl.v.record()
		}
	}
	return out
}

// accountToken expose le token d'un compte au cookie jar du transport.
// Le verrou du slot n'est tenu que le temps de la copie.
type accountToken struct {
	store *Store
	id    int64
}

func (t accountToken) Token() string {
	acc, err := t.store.Account(t.id)
	if err != nil {
		return ""
	}
	return acc.Token
}

func (t accountToken) SetToken(token string) {
	_ = t.store.WithAccount(t.id, func(acc *domain.Account) error {
		acc.Token = token
		return nil
	})
}

// Series contient le cache de contenus et les tickets par compte d'une série.
type Series struct {
	singles *shardedMap[domain.Content]
	tickets *shardedMap[domain.Ticket]
}

func newSeries() *Series {
	return &Series{
		singles: newShardedMap[domain.Content](4),
		tickets: newShardedMap[domain.Ticket](4),
	}
}

func seriesFromRecord(rec domain.SeriesRecord) *Series {
	srs := newSeries()
	for id, c := range rec.Singles {
		srs.singles.put(id, c)
	}
	for id, t := range rec.Tickets {
		srs.tickets.put(id, t)
	}
	return srs
}

func (srs *Series) record() domain.SeriesRecord {
	rec := domain.SeriesRecord{
		Singles: make(map[int64]domain.Content),
		Tickets: make(map[int64]domain.Ticket),
	}
	for _, id := range srs.singles.keys() {
		if c, ok := srs.Content(id); ok {
			rec.Singles[id] = c
		}
	}
	for _, id := range srs.tickets.keys() {
		if t, ok := srs.Ticket(id); ok {
			rec.Tickets[id] = t
		}
	}
	return rec
}

func (srs *Series) Content(singleID int64) (domain.Content, bool) {
	sl, ok := srs.singles.get(singleID)
	if !ok {
		return domain.Content{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.v, true
}

func (srs *Series) PutContent(singleID int64, c domain.Content) {
	srs.singles.put(singleID, c)
}

func (srs *Series) HasTicket(accountID int64) bool {
	_, ok := srs.tickets.get(accountID)
	return ok
}

func (srs *Series) Ticket(accountID int64) (domain.Ticket, bool) {
	sl, ok := srs.tickets.get(accountID)
	if !ok {
		return domain.Ticket{}, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.v, true
}

// WithTicket donne un accès exclusif au ticket (série, compte) s'il existe.
func (srs *Series) WithTicket(accountID int64, fn func(t *domain.Ticket)) error {
	sl, ok := srs.tickets.get(accountID)
	if !ok {
		return fmt.Errorf("ticket for account %d: %w", accountID, ports.ErrNotFound)
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	fn(&sl.v)
	return nil
}

// UpsertTicket crée le ticket par défaut si besoin, puis applique fn sous verrou.
func (srs *Series) UpsertTicket(accountID int64, fn func(t *domain.Ticket)) {
	sl := srs.tickets.getOrCreate(accountID, func() domain.Ticket { return domain.Ticket{} })
	sl.mu.Lock()
	defer sl.mu.Unlock()
	fn(&sl.v)
}

// Candidates renvoie, par id croissant, les comptes dont le ticket vérifie pred.
func (srs *Series) Candidates(pred func(t domain.Ticket) bool) []int64 {
	var out []int64
	for _, id := range srs.tickets.keys() {
		if t, ok := srs.Ticket(id); ok && pred(t) {
			out = append(out, id)
		}
	}
	return out
}
