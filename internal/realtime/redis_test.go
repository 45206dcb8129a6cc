package realtime_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/resepia/backend/internal/realtime"
	"github.com/resepia/backend/internal/testhelpers"
)

// runBridge starts b and returns a channel closed once Run returns
func runBridge(ctx context.Context, b *realtime.RedisBridge) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.Run(ctx)
	}()
	return done
}

func waitStopped(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop")
	}
}

// unusedAddr returns a loopback address nothing listens on
func unusedAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRedisBridge_RelaysAcrossHubs(t *testing.T) {
	client := testhelpers.SetupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// two hubs stand in for two API instances
	local := realtime.NewHub(4, nil, zap.NewNop())
	remote := realtime.NewHub(4, nil, zap.NewNop())
	localBridge := realtime.NewRedisBridge(client, local, zap.NewNop())
	remoteBridge := realtime.NewRedisBridge(client, remote, zap.NewNop())

	localDone := runBridge(ctx, localBridge)
	remoteDone := runBridge(ctx, remoteBridge)

	sub := remote.Subscribe("recipe:7")
	defer sub.Close()

	// PSUBSCRIBE is asynchronous; publish until the remote side sees it
	require.Eventually(t, func() bool {
		require.NoError(t, localBridge.Publish(ctx, "recipe:7", []byte("ping")))
		select {
		case payload := <-sub.C:
			return string(payload) == "ping"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	waitStopped(t, localDone)
	waitStopped(t, remoteDone)
}

func TestRedisBridge_RetriesUnreachableRedis(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	client := redis.NewClient(&redis.Options{Addr: unusedAddr(t), MaxRetries: -1})
	defer client.Close()

	bridge := realtime.NewRedisBridge(client, realtime.NewHub(4, nil, zap.NewNop()), zap.New(core))
	bridge.SetRetryBounds(10*time.Millisecond, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := runBridge(ctx, bridge)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("Realtime bridge unavailable, retrying").Len() >= 3
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case <-done:
		t.Fatal("bridge gave up while Redis was unreachable")
	default:
	}

	cancel()
	waitStopped(t, done)
}

func TestRedisBridge_SubscribesOnceRedisComesUp(t *testing.T) {
	upstream := testhelpers.SetupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the bridge dials a port that only starts forwarding to Redis later
	addr := unusedAddr(t)
	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()

	hub := realtime.NewHub(4, nil, zap.NewNop())
	bridge := realtime.NewRedisBridge(client, hub, zap.NewNop())
	bridge.SetRetryBounds(10*time.Millisecond, 50*time.Millisecond)
	done := runBridge(ctx, bridge)

	time.Sleep(100 * time.Millisecond)
	proxy, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer proxy.Close()
	go forward(proxy, upstream.Options().Addr)

	sub := hub.Subscribe("recipe:9")
	defer sub.Close()

	publisher := realtime.NewRedisBridge(upstream, realtime.NewHub(4, nil, zap.NewNop()), zap.NewNop())
	require.Eventually(t, func() bool {
		require.NoError(t, publisher.Publish(ctx, "recipe:9", []byte("hello")))
		select {
		case payload := <-sub.C:
			return string(payload) == "hello"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 50*time.Millisecond)

	cancel()
	waitStopped(t, done)
}

// forward pipes every connection accepted on l to target
func forward(l net.Listener, target string) {
	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			up, err := net.Dial("tcp", target)
			if err != nil {
				return
			}
			defer up.Close()
			go func() { _, _ = io.Copy(up, conn) }()
			_, _ = io.Copy(conn, up)
		}()
	}
}
