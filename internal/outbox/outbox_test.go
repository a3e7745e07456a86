package outbox

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"route-tracker/internal/submit"
)

func openTemp(t *testing.T) (*Outbox, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outbox.db")
	o, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Close() })
	return o, path
}

func payload(n int) submit.Payload {
	p := submit.Payload{PathID: "p", UserID: "u", VehicleID: "v", TotalDistanceKm: 1.5}
	for i := 0; i < n; i++ {
		p.LocationHistory = append(p.LocationHistory, submit.SamplePayload{
			Latitude: 23.0225, Longitude: 72.5714, Timestamp: int64(1714550400000 + i*1000), Speed: 12.5,
		})
	}
	return p
}

func TestSaveAndGet(t *testing.T) {
	o, _ := openTemp(t)
	ctx := context.Background()
	at := time.UnixMilli(1714550400000)

	require.NoError(t, o.Save(ctx, Entry{SessionID: "s1", UserID: "u", Payload: payload(3), LastError: "network", UpdatedAt: at}))

	e, err := o.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u", e.UserID)
	assert.Equal(t, payload(3), e.Payload)
	assert.Equal(t, "network", e.LastError)
	assert.Equal(t, 1, e.Attempts)
	assert.True(t, e.CreatedAt.Equal(at))
}

func TestSaveAgainCountsAttempts(t *testing.T) {
	o, _ := openTemp(t)
	ctx := context.Background()

	require.NoError(t, o.Save(ctx, Entry{SessionID: "s1", UserID: "u", Payload: payload(1), LastError: "network"}))
	require.NoError(t, o.Save(ctx, Entry{SessionID: "s1", UserID: "u", Payload: payload(2), LastError: "status 502"}))

	e, err := o.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, e.Attempts)
	assert.Equal(t, "status 502", e.LastError)
	assert.Len(t, e.Payload.LocationHistory, 2)
}

func TestGetMissing(t *testing.T) {
	o, _ := openTemp(t)
	_, err := o.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPendingAndDelete(t *testing.T) {
	o, _ := openTemp(t)
	ctx := context.Background()
	base := time.UnixMilli(1714550400000)

	require.NoError(t, o.Save(ctx, Entry{SessionID: "b", UserID: "u2", Payload: payload(1), UpdatedAt: base.Add(time.Second)}))
	require.NoError(t, o.Save(ctx, Entry{SessionID: "a", UserID: "u1", Payload: payload(1), UpdatedAt: base}))

	pending, err := o.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].SessionID)
	assert.Equal(t, "b", pending[1].SessionID)

	require.NoError(t, o.Delete(ctx, "a"))
	pending, err = o.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].SessionID)
}

func TestEntriesSurviveReopen(t *testing.T) {
	o, path := openTemp(t)
	require.NoError(t, o.Save(context.Background(), Entry{SessionID: "s1", UserID: "u", Payload: payload(2)}))
	require.NoError(t, o.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	e, err := reopened.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, e.Payload.LocationHistory, 2)
}
