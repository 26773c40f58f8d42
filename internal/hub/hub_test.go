package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maaaruch/memory-tribunal/internal/chart"
	"github.com/maaaruch/memory-tribunal/internal/domain"
)

type fakeClient struct {
	mu       sync.Mutex
	messages [][]byte
	writeErr error
	closed   bool

	// stall makes WriteMessage block until Close.
	stall    bool
	unblock  chan struct{}
	initOnce sync.Once
}

func (c *fakeClient) init() {
	c.initOnce.Do(func() { c.unblock = make(chan struct{}) })
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	c.init()
	c.mu.Lock()
	stall := c.stall
	c.mu.Unlock()
	if stall {
		<-c.unblock
		return errors.New("closed")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeClient) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("not implemented")
}

func (c *fakeClient) Close() error {
	c.init()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.unblock)
	}
	return nil
}

func (c *fakeClient) snapshot() ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...), c.closed
}

func (c *fakeClient) isClosed() bool {
	_, closed := c.snapshot()
	return closed
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := New()
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func decode(t *testing.T, raw []byte) Message {
	t.Helper()
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return m
}

func TestHub_HelloThenBroadcast(t *testing.T) {
	h := startHub(t)
	c := &fakeClient{}

	h.Register(c, func() []byte { return []byte("hello") })
	h.Broadcast([]byte("update"))

	waitFor(t, func() bool {
		msgs, _ := c.snapshot()
		return len(msgs) == 2
	})
	msgs, _ := c.snapshot()
	if string(msgs[0]) != "hello" || string(msgs[1]) != "update" {
		t.Fatalf("messages: %q", msgs)
	}
}

func TestHub_DropsFailingClient(t *testing.T) {
	h := startHub(t)
	good := &fakeClient{}
	bad := &fakeClient{writeErr: errors.New("broken pipe")}

	h.Register(good, nil)
	h.Register(bad, nil)

	h.Broadcast([]byte("one"))
	h.Broadcast([]byte("two"))

	waitFor(t, func() bool {
		msgs, _ := good.snapshot()
		return len(msgs) == 2
	})
	waitFor(t, bad.isClosed)
}

func TestHub_Unregister(t *testing.T) {
	h := startHub(t)
	c := &fakeClient{}

	h.Register(c, nil)
	h.Unregister(c)
	h.Broadcast([]byte("after"))

	waitFor(t, c.isClosed)
	if msgs, _ := c.snapshot(); len(msgs) != 0 {
		t.Fatalf("unregistered client got %q", msgs)
	}
}

func TestHub_DrawAndPulseMessages(t *testing.T) {
	h := startHub(t)
	c := &fakeClient{}
	h.Register(c, nil)

	if err := h.Draw(chart.Frame{Labels: []string{"Yes", "No"}, Data: [2]int64{2, 1}}); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	h.Voted(context.Background(), domain.OptionNo, domain.Tally{Yes: 2, No: 1})

	waitFor(t, func() bool {
		msgs, _ := c.snapshot()
		return len(msgs) == 2
	})
	msgs, _ := c.snapshot()

	got := map[string]Message{}
	for _, raw := range msgs {
		m := decode(t, raw)
		got[m.Type] = m
	}
	if m, ok := got["chart"]; !ok || m.Chart == nil || m.Chart.Data != [2]int64{2, 1} {
		t.Fatalf("chart message missing or wrong: %q", msgs)
	}
	if m, ok := got["pulse"]; !ok || m.Option != domain.OptionNo {
		t.Fatalf("pulse message missing or wrong: %q", msgs)
	}
}

func TestHub_LatestChartWins(t *testing.T) {
	h := startHub(t)
	c := &fakeClient{}
	h.Register(c, nil)

	for i := int64(1); i <= 50; i++ {
		_ = h.Draw(chart.Frame{Data: [2]int64{i, 0}, Version: uint64(i)})
	}

	waitFor(t, func() bool {
		msgs, _ := c.snapshot()
		if len(msgs) == 0 {
			return false
		}
		last := decode(t, msgs[len(msgs)-1])
		return last.Chart != nil && last.Chart.Data == [2]int64{50, 0}
	})
}

func TestHub_StalledClientDoesNotBlockCallers(t *testing.T) {
	h := startHub(t)
	stalled := &fakeClient{stall: true}
	h.Register(stalled, nil)

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for i := int64(1); i <= 200; i++ {
			_ = h.Draw(chart.Frame{Data: [2]int64{i, 0}})
			h.Voted(context.Background(), domain.OptionYes, domain.Tally{Yes: i})
		}
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatalf("Draw/Voted blocked behind a stalled client")
	}
	waitFor(t, stalled.isClosed)

	// the hub keeps serving pages that do read
	late := &fakeClient{}
	h.Register(late, nil)
	_ = h.Draw(chart.Frame{Data: [2]int64{201, 0}})

	waitFor(t, func() bool {
		msgs, _ := late.snapshot()
		for _, raw := range msgs {
			if m := decode(t, raw); m.Chart != nil && m.Chart.Data == [2]int64{201, 0} {
				return true
			}
		}
		return false
	})
}

func TestHub_StoppedDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New()
	go h.Run(ctx)
	cancel()
	<-h.done

	c := &fakeClient{}
	h.Register(c, nil)
	h.Unregister(c)
	for i := 0; i < 100; i++ {
		h.Broadcast([]byte("x"))
		_ = h.Draw(chart.Frame{})
	}
	if !c.isClosed() {
		t.Fatalf("client registered on a stopped hub should be closed")
	}
}
