package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestConfigWatcher_ReloadsTunables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	if err := os.WriteFile(path, []byte("[types.UserFixed]\nnum_obs = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cw, err := NewConfigWatcher(path, zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("NewConfigWatcher() failed: %v", err)
	}
	cw.debouncePeriod = 10 * time.Millisecond

	reloaded := make(chan *Config, 1)
	cw.OnReload(func(c *Config) error {
		select {
		case reloaded <- c:
		default:
		}
		return nil
	})
	cw.Start()
	defer cw.Stop()

	if err := os.WriteFile(path, []byte("[types.UserFixed]\nnum_obs = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-reloaded:
		if got := c.TypeTunables("UserFixed").NumObs; got != 3 {
			t.Errorf("expected reloaded num_obs 3, got %d", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config watcher did not reload")
	}
}
