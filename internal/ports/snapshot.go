package ports

import "github.com/Guilhem-Bonnet/pagebroker/internal/domain"

// SnapshotStore persiste les trois tables (comptes, séries, config).
type SnapshotStore interface {
	Save(tables domain.Tables, settings domain.Settings) error
}
