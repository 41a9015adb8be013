package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a ScopeDriver event every interval under the command
// span. A solve that keeps producing heartbeats but no SpanEnd is stuck,
// usually in a single huge SCC.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	parent   uint64

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// StartHeartbeat starts the heartbeat goroutine; it returns nil when
// tracing is off or interval is not positive. Stop is nil-safe.
func StartHeartbeat(tracer Tracer, interval time.Duration, parent uint64) *Heartbeat {
	if tracer == nil || !tracer.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: tracer, interval: interval, parent: parent, stopCh: make(chan struct{})}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	gid := getGoroutineID()
	for beat := 1; ; beat++ {
		select {
		case <-h.stopCh:
			return
		case now := <-ticker.C:
			h.tracer.Emit(&Event{
				Time:     now,
				Seq:      NextSeq(),
				Kind:     KindHeartbeat,
				Scope:    ScopeDriver,
				ParentID: h.parent,
				GID:      gid,
				Name:     "heartbeat",
				Detail:   "#" + strconv.Itoa(beat),
			})
		}
	}
}

// Stop ends the goroutine and waits for it.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
