package handshake

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/placekit-labs/placekit/internal/rest"
	"github.com/placekit-labs/placekit/internal/rest/resttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCaller struct{ rest.Caller }

func TestInitialize_ResolvesOnce(t *testing.T) {
	var calls atomic.Int32
	want := &stubCaller{}
	release := make(chan struct{})

	h := New(func(ctx context.Context) (rest.Caller, error) {
		calls.Add(1)
		<-release
		return want, nil
	})

	var wg sync.WaitGroup
	results := make([]rest.Caller, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := h.Initialize(context.Background())
			assert.NoError(t, err)
			results[i] = c
		}(i)
	}

	select {
	case <-h.Ready():
		t.Fatal("handshake resolved before connect returned")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, c := range results {
		assert.Same(t, want, c)
	}
}

func TestInitialize_ConnectFailure(t *testing.T) {
	cause := errors.New("portal unreachable")
	h := New(func(ctx context.Context) (rest.Caller, error) { return nil, cause })

	_, err := h.Initialize(context.Background())
	require.Error(t, err)

	var herr *Error
	require.True(t, errors.As(err, &herr))
	assert.ErrorIs(t, err, cause)

	// Later callers see the same outcome without reconnecting.
	_, err2 := h.Initialize(context.Background())
	assert.Same(t, err, err2)
}

func TestInitialize_NilClient(t *testing.T) {
	h := New(func(ctx context.Context) (rest.Caller, error) { return nil, nil })
	_, err := h.Initialize(context.Background())
	var herr *Error
	assert.True(t, errors.As(err, &herr))
}

func TestInitialize_WaitBoundedByContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := New(func(ctx context.Context) (rest.Caller, error) {
		<-release
		return &stubCaller{}, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := h.Initialize(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestResolved(t *testing.T) {
	want := &stubCaller{}
	h := Resolved(want)

	select {
	case <-h.Ready():
	default:
		t.Fatal("Resolved handshake is not ready")
	}
	c, err := h.Initialize(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, c)
}

func TestConnect_GatesOnUserCurrent(t *testing.T) {
	portal := resttest.NewPortal()
	srv := resttest.NewServer(portal)
	defer srv.Close()

	h := New(Connect(func(ctx context.Context) (rest.Caller, error) {
		return rest.New(srv.URL+"/rest/1/secret/", rest.WithHTTPClient(srv.Client()))
	}))

	c, err := h.Initialize(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, 1, portal.CountCalls(rest.MethodUserCurrent))
}

func TestConnect_RejectedCredentials(t *testing.T) {
	portal := resttest.NewPortal()
	portal.Token = "expected"
	srv := resttest.NewServer(portal)
	defer srv.Close()

	h := New(Connect(func(ctx context.Context) (rest.Caller, error) {
		return rest.New(srv.URL+"/rest/", rest.WithHTTPClient(srv.Client()))
	}))

	_, err := h.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, rest.IsCode(err, rest.CodeInvalidToken))
}
