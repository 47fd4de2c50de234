package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/trackerhub/internal/ratelimit"
	"github.com/mesh-intelligence/trackerhub/internal/storage"
	"github.com/mesh-intelligence/trackerhub/internal/store"
	"github.com/mesh-intelligence/trackerhub/internal/vault"
	"github.com/mesh-intelligence/trackerhub/pkg/types"
)

type fixture struct {
	client *Client
	slot   *storage.MemorySlot
	store  *store.Backend
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	slot := storage.NewMemorySlot()
	b := store.NewBackend(store.WithSlot(slot))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory, UserID: "u-1"}))
	t.Cleanup(func() { b.Detach() })

	v, err := vault.New("test-secret")
	require.NoError(t, err)

	if opts.UserID == "" {
		opts.UserID = "u-1"
	}
	return fixture{
		client: New(b, ratelimit.New(), v, opts),
		slot:   slot,
		store:  b,
	}
}

func mustEntities(t *testing.T, c *Client, name string) *Entities {
	t.Helper()
	e, err := c.Entities(name)
	require.NoError(t, err)
	return e
}

func TestEntitiesInvalidTable(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.client.Entities("Bad Name")
	assert.ErrorIs(t, err, types.ErrInvalidTable)
}

func TestCreateSanitizesInput(t *testing.T) {
	f := newFixture(t, Options{RichFields: map[string][]string{types.TableVisionItems: {"notes"}}})
	items := mustEntities(t, f.client, types.TableVisionItems)
	ctx := context.Background()

	rec, err := items.Create(ctx, types.Record{
		"title": "<script>alert(1)</script>hello",
		"notes": "<p><b>big</b> dream</p><img src=x>",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", rec["title"])
	assert.Equal(t, "<p><b>big</b> dream</p>", rec["notes"])

	got, err := items.Get(ctx, rec.ID())
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestEncryptedFieldsAtRest(t *testing.T) {
	f := newFixture(t, Options{EncryptedFields: map[string][]string{types.TableMentalStates: {"notes", "intensity"}}})
	states := mustEntities(t, f.client, types.TableMentalStates)
	ctx := context.Background()

	rec, err := states.Create(ctx, types.Record{"mood": "tired", "notes": "long week", "intensity": 4})
	require.NoError(t, err)
	assert.Equal(t, "long week", rec["notes"])
	assert.Equal(t, float64(4), rec["intensity"])

	raw, err := f.slot.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "tired")
	assert.NotContains(t, string(raw), "long week")

	var persisted map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted[types.TableMentalStates], 1)
	assert.IsType(t, "", persisted[types.TableMentalStates][0]["intensity"])

	updated, err := states.Update(ctx, rec.ID(), types.NewPatch(map[string]any{"notes": "better now"}))
	require.NoError(t, err)
	assert.Equal(t, "better now", updated["notes"])
	assert.Equal(t, float64(4), updated["intensity"])

	rows, err := states.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "better now", rows[0]["notes"])

	raw, err = f.slot.Read(ctx)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "better now")
}

func TestEncryptedFieldsUnreadableByOtherUser(t *testing.T) {
	f := newFixture(t, Options{EncryptedFields: map[string][]string{types.TableMentalStates: {"notes"}}})
	states := mustEntities(t, f.client, types.TableMentalStates)
	ctx := context.Background()

	rec, err := states.Create(ctx, types.Record{"notes": "private"})
	require.NoError(t, err)

	v, err := vault.New("test-secret")
	require.NoError(t, err)
	other := New(f.store, ratelimit.New(), v, Options{
		UserID:          "u-2",
		EncryptedFields: map[string][]string{types.TableMentalStates: {"notes"}},
	})
	got, err := mustEntities(t, other, types.TableMentalStates).Get(ctx, rec.ID())
	require.NoError(t, err)
	assert.Nil(t, got["notes"])
}

func TestDeleteByEncryptedFieldRejected(t *testing.T) {
	f := newFixture(t, Options{EncryptedFields: map[string][]string{types.TableMentalStates: {"notes"}}})
	states := mustEntities(t, f.client, types.TableMentalStates)

	_, err := states.DeleteBy(context.Background(), "notes", "x")
	assert.ErrorIs(t, err, types.ErrInvalidField)
}

func TestNilVaultStoresPlaintext(t *testing.T) {
	slot := storage.NewMemorySlot()
	b := store.NewBackend(store.WithSlot(slot))
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { b.Detach() })

	c := New(b, ratelimit.New(), nil, Options{EncryptedFields: map[string][]string{types.TableTasks: {"title"}}})
	tasks := mustEntities(t, c, types.TableTasks)
	_, err := tasks.Create(context.Background(), types.Record{"title": "plain"})
	require.NoError(t, err)

	raw, err := slot.Read(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "plain")
}

func TestRateLimitPerOperation(t *testing.T) {
	f := newFixture(t, Options{MaxRequests: 2, Window: time.Hour})
	tasks := mustEntities(t, f.client, types.TableTasks)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := tasks.Create(ctx, types.Record{"title": "t"})
		require.NoError(t, err)
	}
	_, err := tasks.Create(ctx, types.Record{"title": "rejected"})
	assert.ErrorIs(t, err, types.ErrRateLimited)
	assert.True(t, ratelimit.IsRateLimited(err))

	// Other operations and tables have their own quota.
	rows, err := tasks.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	habits := mustEntities(t, f.client, types.TableHabits)
	_, err = habits.Create(ctx, types.Record{"name": "walk"})
	require.NoError(t, err)
}

func TestDeleteAndDeleteBy(t *testing.T) {
	f := newFixture(t, Options{})
	logs := mustEntities(t, f.client, types.TableHabitLogs)
	ctx := context.Background()

	a, err := logs.Create(ctx, types.Record{"habit_id": "h1"})
	require.NoError(t, err)
	_, err = logs.Create(ctx, types.Record{"habit_id": "h1"})
	require.NoError(t, err)
	_, err = logs.Create(ctx, types.Record{"habit_id": "h2"})
	require.NoError(t, err)

	require.NoError(t, logs.Delete(ctx, a.ID()))
	require.NoError(t, logs.Delete(ctx, "missing"))

	n, err := logs.DeleteBy(ctx, "habit_id", "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows, err := logs.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "h2", rows[0]["habit_id"])
}

func TestUpdateMissingRecord(t *testing.T) {
	f := newFixture(t, Options{})
	tasks := mustEntities(t, f.client, types.TableTasks)

	_, err := tasks.Update(context.Background(), "nope", types.NewPatch(map[string]any{"title": "x"}))
	assert.ErrorIs(t, err, types.ErrNotFound)
}
