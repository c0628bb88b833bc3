package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldcrew/shiftlog/pkg/core/model"
	"github.com/fieldcrew/shiftlog/pkg/core/shifterr"
	"github.com/fieldcrew/shiftlog/pkg/db"
)

// mockProvider returns whatever worker it currently holds
type mockProvider struct {
	worker model.Worker
	err    error
}

func (m *mockProvider) CurrentWorker(ctx context.Context) (model.Worker, error) {
	if m.err != nil {
		return model.Worker{}, m.err
	}
	return m.worker, nil
}

func TestContext_RefreshAndCurrent(t *testing.T) {
	provider := &mockProvider{worker: model.Worker{ID: "w1", Role: model.RoleFieldWorker}}
	idCtx := NewContext(provider)

	_, err := idCtx.Current()
	assert.ErrorIs(t, err, ErrNoWorker)

	w, err := idCtx.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "w1", w.ID)

	current, err := idCtx.Current()
	require.NoError(t, err)
	assert.Equal(t, "w1", current.ID)
}

func TestContext_FailedRefreshKeepsPreviousWorker(t *testing.T) {
	provider := &mockProvider{worker: model.Worker{ID: "w1"}}
	idCtx := NewContext(provider)

	_, err := idCtx.Refresh(context.Background())
	require.NoError(t, err)

	provider.err = errors.New("profile service down")
	_, err = idCtx.Refresh(context.Background())
	assert.Error(t, err)

	current, err := idCtx.Current()
	require.NoError(t, err)
	assert.Equal(t, "w1", current.ID)
}

func TestContext_SubscribersSeeLatestWorker(t *testing.T) {
	provider := &mockProvider{worker: model.Worker{ID: "w1", Role: model.RoleFieldWorker}}
	idCtx := NewContext(provider)
	updates := idCtx.Subscribe()

	_, err := idCtx.Refresh(context.Background())
	require.NoError(t, err)

	// role changes without the subscriber reading in between
	provider.worker.Role = model.RoleAdmin
	_, err = idCtx.Refresh(context.Background())
	require.NoError(t, err)

	select {
	case w := <-updates:
		assert.Equal(t, model.RoleAdmin, w.Role)
	default:
		t.Fatal("expected an update")
	}

	select {
	case w := <-updates:
		t.Fatalf("unexpected second update %+v", w)
	default:
	}
}

func TestRequireAdmin(t *testing.T) {
	assert.NoError(t, RequireAdmin(model.Worker{ID: "a", Role: model.RoleAdmin}))

	err := RequireAdmin(model.Worker{ID: "w", Role: model.RoleFieldWorker})
	assert.True(t, shifterr.Is(err, shifterr.Validation))
}

func TestStoreProvider(t *testing.T) {
	store := db.NewMemStore(
		db.WorkerRow{ID: "w1", Name: "Aoife Byrne", Role: "field-worker"},
		db.WorkerRow{ID: "w2", Name: "Bad Role", Role: "owner"},
	)

	w, err := StoreProvider{Store: store, WorkerID: "w1"}.CurrentWorker(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Aoife Byrne", w.Name)
	assert.Equal(t, model.RoleFieldWorker, w.Role)

	_, err = StoreProvider{Store: store, WorkerID: "w2"}.CurrentWorker(context.Background())
	assert.Error(t, err)

	_, err = StoreProvider{Store: store, WorkerID: "missing"}.CurrentWorker(context.Background())
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestWorkerNames(t *testing.T) {
	store := db.NewMemStore(
		db.WorkerRow{ID: "w1", Name: "Aoife Byrne"},
		db.WorkerRow{ID: "w2", Name: "Tomasz Nowak"},
	)

	names, err := WorkerNames(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"w1": "Aoife Byrne", "w2": "Tomasz Nowak"}, names)
}
