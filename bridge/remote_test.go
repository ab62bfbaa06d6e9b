package bridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TienBeta/ggtv-kit/atv"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"INVALID_AUTH: certificate rejected", atv.ErrInvalidAuth},
		{"CANNOT_CONNECT: connection refused", atv.ErrCannotConnect},
		{"java.io.IOException: CONNECTION_CLOSED", atv.ErrConnectionClosed},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := classify(errors.New(tt.msg))
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	plain := errors.New("unexpected")
	assert.Same(t, plain, classify(plain))
	assert.NoError(t, classify(nil))
}

func TestHostRemoteAdapter(t *testing.T) {
	r := newHostRemote(&fakeHost{connectErrs: []error{errors.New("CONNECTION_CLOSED")}})

	name, mac, err := r.NameAndMAC(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Living Room TV", name)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", mac)

	err = r.Connect(context.Background())
	assert.True(t, atv.Retryable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.StartPairing(ctx), context.Canceled)

	assert.Equal(t, &atv.VolumeInfo{Level: 7, Max: 100}, r.VolumeInfo())
	assert.Equal(t, "Chromecast", r.DeviceInfo().Model)
}

func TestContextDeadlineMillis(t *testing.T) {
	assert.Zero(t, contextDeadlineMillis(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	ms := contextDeadlineMillis(ctx)
	assert.Greater(t, ms, int64(1000))
	assert.LessOrEqual(t, ms, int64(2000))

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	assert.Equal(t, int64(1), contextDeadlineMillis(expired))
}
