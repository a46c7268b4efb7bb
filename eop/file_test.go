package eop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFinals(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
}

func TestFileProviderServesTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finals2000A.data")
	writeFinals(t, path,
		finalsLine(58849, 'I', -0.1771350),
		finalsLine(58850, 'I', -0.1782500),
	)

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	got, err := p.TTMinusUT1(context.Background(), utcFromMJD(58849))
	require.NoError(t, err)
	require.InDelta(t, 32.184+37+0.1771350, got, 1e-9)
}

func TestFileProviderReloadsOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finals2000A.data")
	writeFinals(t, path, finalsLine(58849, 'I', -0.1000000))

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	before, err := p.TTMinusUT1(context.Background(), utcFromMJD(58849))
	require.NoError(t, err)

	writeFinals(t, path, finalsLine(58849, 'I', -0.5000000))

	// The watcher debounces briefly; poll until the swap lands.
	deadline := time.Now().Add(5 * time.Second)
	for {
		after, err := p.TTMinusUT1(context.Background(), utcFromMJD(58849))
		require.NoError(t, err)
		if after != before {
			require.InDelta(t, 32.184+37+0.5, after, 1e-9)
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("table was not reloaded after the finals file changed")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestFileProviderKeepsTableOnBadRewrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "finals2000A.data")
	writeFinals(t, path, finalsLine(58849, 'I', -0.1000000))

	p, err := NewFileProvider(path, nil)
	require.NoError(t, err)
	defer p.Close()

	// A truncated rewrite must not take down the provider.
	require.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o644))
	time.Sleep(100 * time.Millisecond)

	got, err := p.TTMinusUT1(context.Background(), utcFromMJD(58849))
	require.NoError(t, err)
	require.InDelta(t, 32.184+37+0.1, got, 1e-9)
}

func TestFileProviderMissingFile(t *testing.T) {
	t.Parallel()

	_, err := NewFileProvider(filepath.Join(t.TempDir(), "absent"), nil)
	require.Error(t, err)
}

func TestURLSourceFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, fetchUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(finalsLine(58849, 'I', -0.1771350) + "\n"))
	}))
	defer srv.Close()

	table, err := NewURLSource(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
}

func TestURLSourceFetchBadStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewURLSource(srv.URL).Fetch(context.Background())
	require.Error(t, err)
}

func TestURLSourceHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewURLSource(srv.URL).Fetch(ctx)
	require.Error(t, err)
}
