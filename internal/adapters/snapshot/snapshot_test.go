package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/pagebroker/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func sampleTables() domain.Tables {
	next := int64(12)
	return domain.Tables{
		Accounts: map[int64]domain.Account{
			1: {Token: "t1", Agent: "kakaopage/0000000000000001", Balance: 30, LastTokenRefresh: 1700000000, LastRewardClaim: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
			2: {Token: "t2", Agent: "kakaopage/0000000000000002", Proxy: "http://proxy:3128"},
		},
		Series: map[int64]domain.SeriesRecord{
			100: {
				Singles: map[int64]domain.Content{
					11: {Title: "Ep 11", Viewer: domain.Viewer{Kind: domain.ViewerImages, Images: []domain.Image{{Size: 5, Kid: "k"}}}, Next: &next},
				},
				Tickets: map[int64]domain.Ticket{
					1: {Permanent: 2, WaitFreeAt: domain.NoWaitFree},
					2: {Permanent: 0, WaitFreeAt: 1700000100},
				},
			},
		},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, zerolog.Nop())

	tables := sampleTables()
	settings := domain.Settings{BindAddr: "0.0.0.0:9000", MaxConcurrentRequests: 4}
	if err := st.Save(tables, settings); err != nil {
		t.Fatalf("save: %v", err)
	}

	gotTables, gotSettings, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(tables, gotTables); diff != "" {
		t.Fatalf("tables mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(settings, gotSettings); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestSave_RotatesPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	st := New(dir, zerolog.Nop())

	first := sampleTables()
	if err := st.Save(first, domain.DefaultSettings()); err != nil {
		t.Fatalf("save 1: %v", err)
	}
	second := sampleTables()
	delete(second.Accounts, 2)
	if err := st.Save(second, domain.DefaultSettings()); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	for _, name := range []string{AccountsFile, AccountsFile + ".old", SeriesFile + ".old", ConfigFile + ".old"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, AccountsFile+".new")); !os.IsNotExist(err) {
		t.Fatalf("expected no leftover .new file, got %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, AccountsFile+".old"))
	if err != nil {
		t.Fatalf("read old: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected previous accounts in .old")
	}

	got, _, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Accounts) != 1 {
		t.Fatalf("expected 1 account after second save, got %d", len(got.Accounts))
	}
}

func TestLoad_MissingFilesUseDefaults(t *testing.T) {
	st := New(t.TempDir(), zerolog.Nop())
	tables, settings, err := st.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(tables.Accounts) != 0 || len(tables.Series) != 0 {
		t.Fatalf("expected empty tables, got %+v", tables)
	}
	if diff := cmp.Diff(domain.DefaultSettings(), settings); diff != "" {
		t.Fatalf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ConfigAcceptsComments(t *testing.T) {
	dir := t.TempDir()
	cfg := "{\n  // écoute publique\n  \"bind_addr\": \"0.0.0.0:8081\",\n  \"max_concurrent_requests\": 2,\n}\n"
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte(cfg), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, settings, err := New(dir, zerolog.Nop()).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.BindAddr != "0.0.0.0:8081" || settings.MaxConcurrentRequests != 2 {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestLoad_CorruptFileFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, AccountsFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := New(dir, zerolog.Nop()).Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}
