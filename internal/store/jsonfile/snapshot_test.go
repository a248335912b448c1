package jsonfile

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dolarwatch/internal/model"
)

func randomPositive(rng *rand.Rand) decimal.Decimal {
	// cents in (0, 5000.00]
	return decimal.New(rng.Int63n(500000)+1, -2)
}

func TestSnapshotStore_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "data", "last_rates.json"), nil)

	for n := 0; n < 20; n++ {
		snap := model.Snapshot{}
		for _, i := range model.Instruments {
			snap[i] = model.Rate{Buy: randomPositive(rng), Sell: randomPositive(rng)}
		}

		require.NoError(t, store.Save(snap))
		got := store.Load()
		assert.True(t, snap.Equal(got), "round %d: saved %v loaded %v", n, snap, got)
	}
}

func TestSnapshotStore_MissingFileIsEmpty(t *testing.T) {
	store := NewSnapshotStore(filepath.Join(t.TempDir(), "nope.json"), nil)
	assert.Empty(t, store.Load())
}

func TestSnapshotStore_CorruptFileIsEmptyAndQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_rates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"oficial": {"compra": 35`), 0o644))

	store := NewSnapshotStore(path, nil)
	assert.Empty(t, store.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "last_rates.json.corrupt-"))

	// the store keeps working after the bad file was moved aside
	snap := model.Snapshot{model.Blue: {Buy: decimal.NewFromInt(1), Sell: decimal.NewFromInt(2)}}
	require.NoError(t, store.Save(snap))
	assert.True(t, snap.Equal(store.Load()))
}

func TestSnapshotStore_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_rates.json")
	store := NewSnapshotStore(path, nil)
	require.NoError(t, store.Save(model.Snapshot{
		model.Oficial: {Buy: decimal.NewFromInt(352), Sell: decimal.NewFromInt(361)},
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"oficial": {"compra": 352, "venta": 361}}`, string(data))
}

func TestSnapshotStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewSnapshotStore(filepath.Join(dir, "last_rates.json"), nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(model.Snapshot{model.Blue: {Buy: decimal.NewFromInt(int64(i)), Sell: decimal.NewFromInt(1)}}))
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSnapshotStore_SaveError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// parent "directory" is a regular file
	store := NewSnapshotStore(filepath.Join(blocker, "last_rates.json"), nil)
	err := store.Save(model.Snapshot{})

	var we *WriteError
	require.ErrorAs(t, err, &we)
}

func TestSnapshotStore_NullFileIsEmptyAndQuarantined(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_rates.json")
	require.NoError(t, os.WriteFile(path, []byte(" null "), 0o644))

	store := NewSnapshotStore(path, nil)
	got := store.Load()
	require.NotNil(t, got)
	assert.Empty(t, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "last_rates.json.corrupt-"))
}

func TestReadJSON_NullIsCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o644))

	m := map[string]int{}
	ok, err := ReadJSON(path, &m)
	assert.False(t, ok)
	assert.True(t, IsCorrupt(err))
	assert.ErrorIs(t, err, ErrNullDocument)
	assert.NotNil(t, m)
}
