// Package snapshot persiste les tables du broker dans trois fichiers JSON
// (accounts.json, serieses.json, config.json) avec rotation .new/.old.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/Guilhem-Bonnet/pagebroker/internal/ports"
	"github.com/rs/zerolog"
	"github.com/tidwall/jsonc"
)

const (
	AccountsFile = "accounts.json"
	SeriesFile   = "serieses.json"
	ConfigFile   = "config.json"
)

var _ ports.SnapshotStore = (*Store)(nil)

type Store struct {
	dir    string
	logger zerolog.Logger
}

func New(dir string, logger zerolog.Logger) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir, logger: logger}
}

// Load lit les trois tables. Un fichier absent donne la table par défaut
// (avec un avertissement); un fichier illisible est une erreur.
func (s *Store) Load() (domain.Tables, domain.Settings, error) {
	tables := domain.Tables{
		Accounts: map[int64]domain.Account{},
		Series:   map[int64]domain.SeriesRecord{},
	}
	settings := domain.DefaultSettings()

	if err := s.read(AccountsFile, false, &tables.Accounts); err != nil {
		return domain.Tables{}, domain.Settings{}, err
	}
	if err := s.read(SeriesFile, false, &tables.Series); err != nil {
		return domain.Tables{}, domain.Settings{}, err
	}
	if err := s.read(ConfigFile, true, &settings); err != nil {
		return domain.Tables{}, domain.Settings{}, err
	}
	if tables.Accounts == nil {
		tables.Accounts = map[int64]domain.Account{}
	}
	if tables.Series == nil {
		tables.Series = map[int64]domain.SeriesRecord{}
	}
	return tables, settings, nil
}

func (s *Store) read(name string, relaxed bool, out any) error {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Str("file", name).Msg("snapshot file not found, using default value")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	s.logger.Info().Str("file", name).Msg("loading snapshot")
	// config.json est édité à la main: commentaires et virgules finales tolérés.
	if relaxed {
		data = jsonc.ToJSON(data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// Save écrit les trois fichiers; une erreur sur l'un n'empêche pas les autres.
func (s *Store) Save(tables domain.Tables, settings domain.Settings) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	var errs []error
	for _, f := range []struct {
		name string
		v    any
	}{
		{AccountsFile, tables.Accounts},
		{SeriesFile, tables.Series},
		{ConfigFile, settings},
	} {
		s.logger.Info().Str("file", f.name).Msg("saving snapshot")
		if err := s.write(f.name, f.v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// write: .new, suppression de .old, courant -> .old, .new -> courant.
func (s *Store) write(name string, v any) error {
	path := filepath.Join(s.dir, name)
	newPath := path + ".new"
	oldPath := path + ".old"

	f, err := os.Create(newPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", newPath, err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		os.Remove(newPath)
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(newPath)
		return fmt.Errorf("writing %s: %w", newPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(newPath)
		return fmt.Errorf("closing %s: %w", newPath, err)
	}

	_ = os.Remove(oldPath)
	_ = os.Rename(path, oldPath)
	if err := os.Rename(newPath, path); err != nil {
		return fmt.Errorf("renaming %s into place: %w", newPath, err)
	}
	return nil
}
