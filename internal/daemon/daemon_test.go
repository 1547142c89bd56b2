package daemon

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/eyalbz/wacal/internal/api"
	"github.com/eyalbz/wacal/internal/registry"
	"github.com/eyalbz/wacal/internal/render"
	"github.com/eyalbz/wacal/internal/source"
	"github.com/eyalbz/wacal/internal/status"
	"github.com/eyalbz/wacal/internal/store"
	syncengine "github.com/eyalbz/wacal/internal/sync"
)

type noFetch struct{}

func (noFetch) FetchHistory(context.Context, string, int64, int64) ([]store.Message, error) {
	return nil, nil
}

var _ source.HistoryFetcher = noFetch{}

type noUpsert struct{}

func (noUpsert) Upsert(_ context.Context, _ *store.LocalEvent) (bool, string, error) {
	return false, "", nil
}

func testServices(t *testing.T) (api.Services, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "wacal.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	runs := status.NewRegistry(nil)
	engine := syncengine.New(syncengine.Params{
		DB:       db,
		Registry: registry.New(db),
		Fetcher:  noFetch{},
		Renderer: render.New(5*time.Minute, time.UTC, "אייל"),
		Upserter: noUpsert{},
		Runs:     runs,
		Gap:      time.Hour,
	})
	return api.Services{
		Status:   api.NewStatusService(db),
		Entities: api.NewEntityService(db),
		Sync:     api.NewSyncService(engine, runs, db),
		Events:   api.NewEventService(db),
	}, db
}

func unixClient(socketPath string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socketPath)
			},
		},
		Timeout: 5 * time.Second,
	}
}

func TestServerServesOverUnixSocket(t *testing.T) {
	// Short path: Unix socket paths are length-limited.
	tmpDir, err := os.MkdirTemp("/tmp", "wacal-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })
	socketPath := filepath.Join(tmpDir, "d.sock")

	services, db := testServices(t)
	if err := db.UpsertEntity(&store.Entity{ChatID: "a@c.us", Kind: store.KindContact, DisplayName: "A"}); err != nil {
		t.Fatal(err)
	}

	srv, err := NewServer(Params{SocketPath: socketPath}, services, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { srv.Stop(context.Background()) })
	time.Sleep(50 * time.Millisecond)

	resp, err := unixClient(socketPath).Get("http://wacal/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Entities int `json:"entities"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Entities != 1 {
		t.Errorf("entities = %d, want 1", body.Entities)
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	tmpDir, err := os.MkdirTemp("/tmp", "wacal-stale-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(tmpDir) })
	socketPath := filepath.Join(tmpDir, "d.sock")

	// A leftover socket file from a crashed daemon.
	if err := os.WriteFile(socketPath, nil, 0600); err != nil {
		t.Fatal(err)
	}

	services, _ := testServices(t)
	srv, err := NewServer(Params{SocketPath: socketPath}, services, zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer over stale socket: %v", err)
	}
	srv.Stop(context.Background())
}
