package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/core/model"
	"github.com/penwyp/go-fleet-replay/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrip(t *testing.T) *fixtures.HistoryGenerator {
	t.Helper()
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	require.NoError(t, gen.WriteHistory(fixtures.TripSnapshot(), fixtures.TripPages()...))
	return gen
}

func TestParsePageFileName(t *testing.T) {
	tests := []struct {
		name    string
		want    PageFile
		wantErr bool
	}{
		{name: "0-101_3.json", want: PageFile{Name: "0-101_3.json", Start: 0, End: 101, Count: 3}},
		{name: "400.5-401_2.json", want: PageFile{Name: "400.5-401_2.json", Start: 400.5, End: 401, Count: 2}},
		{name: "0-101.json", wantErr: true},
		{name: "abc_3.json", wantErr: true},
		{name: "x-1_3.json", wantErr: true},
		{name: "1-x_3.json", wantErr: true},
		{name: "0-1_n.json", wantErr: true},
		{name: "5-1_1.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageFileName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirServiceReadsHistory(t *testing.T) {
	gen := writeTrip(t)
	require.NoError(t, gen.WriteRaw("notes.txt", []byte("ignored")))
	require.NoError(t, gen.WriteRaw("garbage.json", []byte("{}")))

	svc, err := NewDirService(gen.GetBaseDir(), 4)
	require.NoError(t, err)
	ctx := context.Background()

	count, err := svc.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	tr, err := svc.TimeRange()
	require.NoError(t, err)
	assert.Equal(t, TimeRange{Start: 0, End: 401}, tr)

	snap, err := svc.ReadEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, snap["users"], 1)
	assert.Len(t, snap["stations"], 2)

	page, err := svc.GetPage(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, page.Index)
	require.Len(t, page.Entries, 3)
	assert.Equal(t, 100.0, page.Entries[1].Time)
	assert.Equal(t, "EventUserArrivesAtStationToRentBikeWithoutReservation", page.Entries[1].Events[0].Name)

	again, err := svc.GetPage(ctx, 0)
	require.NoError(t, err)
	assert.Same(t, page, again, "second read should come from the page cache")

	page, err = svc.GetPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 400.0, page.Start)

	_, err = svc.GetPage(ctx, 2)
	assert.Error(t, err)
}

func TestDirServiceInvalidPage(t *testing.T) {
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	require.NoError(t, gen.WriteEntities(fixtures.RentalSnapshot()))
	require.NoError(t, gen.WriteRaw("0-10_2.json", []byte(`[{"time": 5, "events": []}, {"time": 1, "events": []}]`)))
	require.NoError(t, gen.WriteRaw("20-30_1.json", []byte(`not json`)))

	svc, err := NewDirService(gen.GetBaseDir(), 2)
	require.NoError(t, err)

	var valErr *model.ValidationError
	_, err = svc.GetPage(context.Background(), 0)
	assert.ErrorAs(t, err, &valErr)

	_, err = svc.GetPage(context.Background(), 1)
	assert.ErrorAs(t, err, &valErr)
}

func TestDirServiceRejectsOverlappingPages(t *testing.T) {
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	require.NoError(t, gen.WriteRaw("0-10_1.json", []byte(`[]`)))
	require.NoError(t, gen.WriteRaw("5-20_1.json", []byte(`[]`)))

	_, err := NewDirService(gen.GetBaseDir(), 2)
	var valErr *model.ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestDirServiceClipToRange(t *testing.T) {
	gen := writeTrip(t)

	t.Run("clips to overlapping pages", func(t *testing.T) {
		svc, err := NewDirService(gen.GetBaseDir(), 2)
		require.NoError(t, err)
		require.NoError(t, svc.ClipToRange(300, 401))

		count, err := svc.PageCount(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		page, err := svc.GetPage(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, 400.0, page.Start)
	})

	t.Run("bounds are checked", func(t *testing.T) {
		svc, err := NewDirService(gen.GetBaseDir(), 2)
		require.NoError(t, err)
		assert.Error(t, svc.ClipToRange(-1, 10))
		assert.Error(t, svc.ClipToRange(0, 500))
		assert.Error(t, svc.ClipToRange(50, 10))
	})

	t.Run("not after reading", func(t *testing.T) {
		svc, err := NewDirService(gen.GetBaseDir(), 2)
		require.NoError(t, err)
		_, err = svc.GetPage(context.Background(), 0)
		require.NoError(t, err)
		assert.Error(t, svc.ClipToRange(0, 101))
	})
}

func TestDirServiceRespectsContext(t *testing.T) {
	gen := writeTrip(t)
	svc, err := NewDirService(gen.GetBaseDir(), 2)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.GetPage(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.PageCount(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = svc.ReadEntities(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryService(t *testing.T) {
	pages := [][]model.ChangeEntry{
		fixtures.CounterEntries("stations", 10, "visits", 0, 0, 1),
		fixtures.CounterEntries("stations", 10, "visits", 2, 2, 3),
	}
	svc, err := NewMemoryService(fixtures.RentalSnapshot(), pages...)
	require.NoError(t, err)
	ctx := context.Background()

	count, err := svc.PageCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	page, err := svc.GetPage(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.0, page.Start)
	assert.Equal(t, 3.0, page.End)

	boom := errors.New("boom")
	svc.FailPage(1, boom)
	_, err = svc.GetPage(ctx, 1)
	assert.ErrorIs(t, err, boom)
	svc.FailPage(1, nil)
	_, err = svc.GetPage(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 3, svc.Calls(1))

	err = svc.Append(fixtures.CounterEntries("stations", 10, "visits", 4, 1))
	assert.Error(t, err, "pages must not go back in time")
}

func TestValidatePage(t *testing.T) {
	tests := []struct {
		name    string
		page    *model.Page
		wantErr bool
	}{
		{
			name:    "empty",
			page:    &model.Page{},
			wantErr: true,
		},
		{
			name: "outside range",
			page: &model.Page{Start: 0, End: 10, Entries: []model.ChangeEntry{{Time: 11}}},
			wantErr: true,
		},
		{
			name: "unnamed event",
			page: &model.Page{Entries: []model.ChangeEntry{{Time: 0, Events: []model.Event{{}}}}},
			wantErr: true,
		},
		{
			name: "negative id",
			page: &model.Page{Entries: []model.ChangeEntry{{Time: 0, Events: []model.Event{{
				Name: "x", Changes: map[string][]model.Delta{"users": {{ID: -1}}},
			}}}}},
			wantErr: true,
		},
		{
			name: "equal times are fine",
			page: &model.Page{Start: 0, End: 1, Entries: []model.ChangeEntry{{Time: 1}, {Time: 1}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePage(tt.page)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFollowerPicksUpNewPages(t *testing.T) {
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	pages := fixtures.TripPages()
	require.NoError(t, gen.WriteHistory(fixtures.TripSnapshot(), pages[0]))

	svc, err := NewDirService(gen.GetBaseDir(), 2)
	require.NoError(t, err)
	follower, err := NewFollower(svc)
	require.NoError(t, err)
	defer follower.Close()

	// write under a temporary name then rename so the rescan never sees a partial file
	data := filepath.Join(gen.GetBaseDir(), "partial.tmp")
	name := fixtures.PageFileName(400, 401, 2)
	tmp := fixtures.NewHistoryGenerator(t.TempDir())
	_, err = tmp.WritePage(pages[1])
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(tmp.GetBaseDir(), name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(data, raw, 0644))
	require.NoError(t, os.Rename(data, filepath.Join(gen.GetBaseDir(), name)))

	select {
	case count := <-follower.Updates():
		assert.Equal(t, 2, count)
	case <-time.After(5 * time.Second):
		t.Fatal("Expected follower to report the new page")
	}

	count, err := svc.PageCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, follower.Close())
}

func TestFollowerWaitsForWritesToSettle(t *testing.T) {
	gen := fixtures.NewHistoryGenerator(t.TempDir())
	pages := fixtures.TripPages()
	require.NoError(t, gen.WriteHistory(fixtures.TripSnapshot(), pages[0]))

	svc, err := NewDirService(gen.GetBaseDir(), 2)
	require.NoError(t, err)
	follower, err := NewFollower(svc, WithSettleDelay(500*time.Millisecond))
	require.NoError(t, err)
	defer follower.Close()

	tmp := fixtures.NewHistoryGenerator(t.TempDir())
	name, err := tmp.WritePage(pages[1])
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(tmp.GetBaseDir(), name))
	require.NoError(t, err)

	// write the file in place in two chunks
	path := filepath.Join(gen.GetBaseDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write(raw[:len(raw)/2])
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	time.Sleep(50 * time.Millisecond)
	_, err = f.Write(raw[len(raw)/2:])
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case count := <-follower.Updates():
		assert.Equal(t, 2, count)
	case <-time.After(5 * time.Second):
		t.Fatal("Expected follower to report the new page")
	}

	page, err := svc.GetPage(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, len(pages[1]), page.Len())

	select {
	case count := <-follower.Updates():
		t.Fatalf("Expected a single rescan for one file, got another with %d pages", count)
	case <-time.After(700 * time.Millisecond):
	}
}
