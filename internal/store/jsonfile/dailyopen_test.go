package jsonfile

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dolarwatch/internal/model"
)

var buenosAires = time.FixedZone("ART", -3*3600)

func snapOf(buy, sell int64) model.Snapshot {
	return model.Snapshot{model.Oficial: {Buy: decimal.NewFromInt(buy), Sell: decimal.NewFromInt(sell)}}
}

func TestDailyOpen_FirstWriterWins(t *testing.T) {
	store := NewDailyOpenStore(filepath.Join(t.TempDir(), "initial_rates.json"), buenosAires, nil)
	morning := time.Date(2026, 10, 15, 10, 5, 0, 0, buenosAires)

	first, err := store.GetOrInitToday(morning, snapOf(350, 360))
	require.NoError(t, err)
	assert.True(t, first.Equal(snapOf(350, 360)))

	second, err := store.GetOrInitToday(morning.Add(3*time.Hour), snapOf(400, 410))
	require.NoError(t, err)
	assert.True(t, second.Equal(snapOf(350, 360)), "second call must return the first value")

	stored, ok := store.Get(morning)
	require.True(t, ok)
	assert.True(t, stored.Equal(snapOf(350, 360)))
}

func TestDailyOpen_NewDayGetsNewEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "initial_rates.json")
	store := NewDailyOpenStore(path, buenosAires, nil)

	day1 := time.Date(2026, 10, 15, 16, 0, 0, 0, buenosAires)
	day2 := time.Date(2026, 10, 16, 10, 0, 0, 0, buenosAires)

	_, err := store.GetOrInitToday(day1, snapOf(350, 360))
	require.NoError(t, err)
	got, err := store.GetOrInitToday(day2, snapOf(355, 365))
	require.NoError(t, err)
	assert.True(t, got.Equal(snapOf(355, 365)))

	all := store.All()
	assert.Len(t, all, 2)
	assert.Contains(t, all, "2026-10-15")
	assert.Contains(t, all, "2026-10-16")

	// persisted across instances
	reopened := NewDailyOpenStore(path, buenosAires, nil)
	d1, ok := reopened.Get(day1)
	require.True(t, ok)
	assert.True(t, d1.Equal(snapOf(350, 360)))
}

func TestDailyOpen_DateTakenInStoreLocation(t *testing.T) {
	store := NewDailyOpenStore(filepath.Join(t.TempDir(), "initial_rates.json"), buenosAires, nil)

	// 01:30 UTC on the 16th is still the 15th in Buenos Aires
	ts := time.Date(2026, 10, 16, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-15", store.DateKey(ts))
}

func TestDailyOpen_ConcurrentCallersAgree(t *testing.T) {
	store := NewDailyOpenStore(filepath.Join(t.TempDir(), "initial_rates.json"), buenosAires, nil)
	now := time.Date(2026, 10, 15, 11, 0, 0, 0, buenosAires)

	var wg sync.WaitGroup
	results := make([]model.Snapshot, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := store.GetOrInitToday(now, snapOf(int64(100+i), 200))
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		assert.True(t, r.Equal(results[0]), "all callers must observe the same opening value")
	}
}

func TestDailyOpen_CorruptFileRecovers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "initial_rates.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

	store := NewDailyOpenStore(path, buenosAires, nil)
	now := time.Date(2026, 10, 15, 11, 0, 0, 0, buenosAires)
	got, err := store.GetOrInitToday(now, snapOf(1, 2))
	require.NoError(t, err)
	assert.True(t, got.Equal(snapOf(1, 2)))
}

func TestDailyOpen_NullFileIsTreatedAsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "initial_rates.json")
	require.NoError(t, os.WriteFile(path, []byte("null\n"), 0o644))

	store := NewDailyOpenStore(path, buenosAires, nil)
	now := time.Date(2026, 10, 15, 11, 0, 0, 0, buenosAires)

	_, ok := store.Get(now)
	assert.False(t, ok)

	got, err := store.GetOrInitToday(now, snapOf(1, 2))
	require.NoError(t, err)
	assert.True(t, got.Equal(snapOf(1, 2)))

	again, ok := store.Get(now)
	require.True(t, ok)
	assert.True(t, again.Equal(snapOf(1, 2)))
}
