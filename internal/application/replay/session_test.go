package replay

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-fleet-replay/internal/core/playback"
	"github.com/penwyp/go-fleet-replay/internal/testing/fixtures"
)

func tripDir(t *testing.T) string {
	t.Helper()
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	require.NoError(t, gen.WriteHistory(fixtures.TripSnapshot(), fixtures.TripPages()...))
	return gen.GetBaseDir()
}

func openSession(t *testing.T, cfg *Config) *Session {
	t.Helper()
	s, err := NewSession(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionOpen(t *testing.T) {
	s := openSession(t, &Config{Dir: tripDir(t)})

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, playback.Start, s.Clock().State())
	assert.Len(t, s.Service().Pages(), 2)
	assert.NotNil(t, s.Metrics().Registry())
}

func TestSessionsAreIndependent(t *testing.T) {
	dir := tripDir(t)
	a := openSession(t, &Config{Dir: dir})
	b := openSession(t, &Config{Dir: dir})
	assert.NotEqual(t, a.ID, b.ID)

	ctx := context.Background()
	require.NoError(t, a.Clock().Seek(ctx, 100))
	assert.Equal(t, 100.0, a.Clock().Time())
	assert.Equal(t, playback.Start, b.Clock().State())
}

func TestSessionClip(t *testing.T) {
	start, end := 400.0, 500.0
	s := openSession(t, &Config{Dir: tripDir(t), ClipStart: &start, ClipEnd: &end})
	assert.Len(t, s.Service().Pages(), 1)
}

func TestSessionMissingDir(t *testing.T) {
	_, err := NewSession(&Config{Dir: "/does/not/exist"})
	assert.Error(t, err)
}

func TestSessionRunsTicks(t *testing.T) {
	s := openSession(t, &Config{Dir: tripDir(t), Tick: 10 * time.Millisecond, Speed: 1000})

	require.NoError(t, s.Clock().Play(context.Background()))
	require.Eventually(t, func() bool {
		return s.Clock().State() == playback.End
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionFollow(t *testing.T) {
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	pages := fixtures.TripPages()
	require.NoError(t, gen.WriteHistory(fixtures.TripSnapshot(), pages[0]))

	s := openSession(t, &Config{Dir: gen.GetBaseDir(), Follow: true})
	assert.Equal(t, 1, s.Clock().Status().PageCount)

	_, err := gen.WritePage(pages[1])
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return s.Clock().Status().PageCount == 2
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSessionCloseIsClean(t *testing.T) {
	s, err := NewSession(&Config{Dir: tripDir(t), Follow: true})
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))

	select {
	case <-s.Done():
		t.Fatal("Expected session to keep running")
	default:
	}
	assert.NoError(t, s.Close())
	<-s.Done()
	assert.NoError(t, s.Close(), "second close")
}

func TestSessionReportsWorkerFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	s, err := NewSession(&Config{Dir: tripDir(t), MetricsAddr: ln.Addr().String()})
	require.NoError(t, err)
	require.NoError(t, s.Open(context.Background()))

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Expected the metrics failure to stop the session")
	}
	err = s.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics endpoint")
}
