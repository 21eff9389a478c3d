package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const connectKey = "connect"

// ErrHandleClosed は接続試行中にCloseされた場合に、その試行の待機者へ返る。
var ErrHandleClosed = errors.New("store handle closed during connect")

// DialFunc はストアへの接続を1回試行する。
type DialFunc[T any] func(ctx context.Context) (T, error)

// CloseFunc は確立済みの接続を解放する。
type CloseFunc[T any] func(ctx context.Context, conn T) error

// Handle はプロセス内で共有する1本の長寿命接続を保持する。
//
// 接続は最初のAcquireで遅延確立される。確立中に到着した呼び出しは同じ試行の結果を待ち、
// 試行が失敗した場合は何もキャッシュしないため、次の呼び出しで再試行される。
type Handle[T any] struct {
	dial    DialFunc[T]
	close   CloseFunc[T]
	timeout time.Duration

	mu         sync.RWMutex
	conn       T
	connected  bool
	// Closeのたびに進む。古い世代で始まった試行の接続は保持しない。
	generation uint64

	group singleflight.Group
}

// NewHandle はHandleを生成する。接続はまだ確立しない。
// timeoutは1回の接続試行の上限で、0以下の場合は上限なし。
func NewHandle[T any](dial DialFunc[T], closeFn CloseFunc[T], timeout time.Duration) *Handle[T] {
	return &Handle[T]{
		dial:    dial,
		close:   closeFn,
		timeout: timeout,
	}
}

// Acquire は確立済みの接続を返す。未確立の場合は接続を試行する。
// 試行は最初の呼び出し元のキャンセルから切り離して実行される。
// 呼び出し元のctxが先に終了した場合はctx.Err()を返し、試行自体は他の待機者のために継続する。
func (h *Handle[T]) Acquire(ctx context.Context) (T, error) {
	if conn, ok := h.cached(); ok {
		return conn, nil
	}

	ch := h.group.DoChan(connectKey, func() (interface{}, error) {
		h.mu.RLock()
		conn, ok, gen := h.conn, h.connected, h.generation
		h.mu.RUnlock()
		// 直前に別の試行が成功している場合
		if ok {
			return conn, nil
		}

		dialCtx := context.WithoutCancel(ctx)
		if h.timeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(dialCtx, h.timeout)
			defer cancel()
		}

		conn, err := h.dial(dialCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to store: %w", err)
		}

		h.mu.Lock()
		if h.generation != gen {
			h.mu.Unlock()
			// 試行中にCloseされたため、確立した接続はすぐに解放する
			if h.close != nil {
				_ = h.close(context.WithoutCancel(ctx), conn)
			}
			return nil, ErrHandleClosed
		}
		h.conn = conn
		h.connected = true
		h.mu.Unlock()
		return conn, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Connected は接続が確立済みかどうかを返す。
func (h *Handle[T]) Connected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.connected
}

// Close は確立済みの接続を解放する。未接続の場合は何もしない。
// 実行中の接続試行があれば、その結果の接続は保持せずに解放され、待機者にはErrHandleClosedが返る。
// Close後のAcquireは新しい接続を確立する。
func (h *Handle[T]) Close(ctx context.Context) error {
	h.mu.Lock()
	conn, ok := h.conn, h.connected
	var zero T
	h.conn = zero
	h.connected = false
	h.generation++
	h.mu.Unlock()
	h.group.Forget(connectKey)

	if !ok || h.close == nil {
		return nil
	}
	if err := h.close(ctx, conn); err != nil {
		return fmt.Errorf("failed to close store connection: %w", err)
	}
	return nil
}

func (h *Handle[T]) cached() (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn, h.connected
}
