package behaviortree

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// StateNotification is published on a node's observer channel whenever its
// Status changes.
type StateNotification struct {
	TimestampMS int64
	UID         uint16
	PrevStatus  Status
	NewStatus   Status
}

// DataProxy is the per-node binding between a node and the Blackboard that
// backs its ports, plus the bookkeeping (status, uid, path, observers) the
// node wrapper needs.
type DataProxy struct {
	bb    *Blackboard
	ports map[string]string

	mu       sync.Mutex
	status   Status
	uid      uint16
	fullPath string

	subMu sync.Mutex
	subs  []chan StateNotification
}

func newDataProxy(bb *Blackboard, ports map[string]string) *DataProxy {
	return &DataProxy{bb: bb, ports: ports}
}

// Blackboard returns the write-capable handle to the owning Blackboard, for
// use by actions such as SetBlackboard that need to publish a value.
func (d *DataProxy) Blackboard() *Blackboard { return d.bb }

func (d *DataProxy) UID() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uid
}

func (d *DataProxy) SetUID(uid uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uid = uid
}

func (d *DataProxy) FullPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fullPath
}

func (d *DataProxy) SetFullPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fullPath = path
}

// Path returns the tail segment of FullPath, after the last slash.
func (d *DataProxy) Path() string {
	full := d.FullPath()
	if i := strings.LastIndex(full, "/"); i >= 0 {
		return full[i+1:]
	}
	return full
}

func (d *DataProxy) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// SetStatus records new as the current status and, if it differs from the
// previous value and at least one observer is attached, publishes a
// StateNotification.
func (d *DataProxy) SetStatus(new Status) {
	d.mu.Lock()
	prev := d.status
	d.status = new
	uid := d.uid
	d.mu.Unlock()

	if prev != new {
		d.publish(uid, prev, new)
	}
}

// ResetStatus returns the node to Idle, the only legal way back to that
// state once a node has halted.
func (d *DataProxy) ResetStatus() {
	d.SetStatus(Idle)
}

// Subscribe returns a channel that receives this node's StateNotifications.
// The channel is buffered to depth one and most-recent-value-wins: a slow
// consumer sees the latest status, never a backlog.
func (d *DataProxy) Subscribe() <-chan StateNotification {
	ch := make(chan StateNotification, 1)
	d.subMu.Lock()
	d.subs = append(d.subs, ch)
	d.subMu.Unlock()
	return ch
}

func (d *DataProxy) publish(uid uint16, prev, new Status) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	if len(d.subs) == 0 {
		return
	}
	note := StateNotification{
		TimestampMS: time.Now().UnixMilli(),
		UID:         uid,
		PrevStatus:  prev,
		NewStatus:   new,
	}
	for _, ch := range d.subs {
		select {
		case ch <- note:
		default:
			// Drop the stale pending value, keep only the most recent.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- note:
			default:
			}
		}
	}
}

func isPortRef(spec string) (string, bool) {
	if len(spec) >= 2 && strings.HasPrefix(spec, "{") && strings.HasSuffix(spec, "}") {
		return spec[1 : len(spec)-1], true
	}
	return "", false
}

// GetInput resolves port on proxy: if its spec is a {ref}, the braces are
// stripped and the value is fetched (and schema-deserialized) from the
// Blackboard; otherwise the spec is parsed as a literal of type T. It
// returns ok=false if the port is unbound, the blackboard key is absent, or
// the value cannot be converted to T.
func GetInput[T any](proxy *DataProxy, port string) (T, bool) {
	var zero T

	spec, ok := proxy.ports[port]
	if !ok {
		return zero, false
	}

	if ref, isRef := isPortRef(spec); isRef {
		v, found := proxy.bb.Get(ref)
		if !found {
			return zero, false
		}
		return convertValue[T](v)
	}

	return parseLiteral[T](spec)
}

func parseLiteral[T any](spec string) (T, bool) {
	var zero T
	if s, ok := any(&zero).(*string); ok {
		*s = spec
		return zero, true
	}
	if err := json.Unmarshal([]byte(spec), &zero); err != nil {
		return zero, false
	}
	return zero, true
}

func convertValue[T any](v any) (T, bool) {
	var zero T
	if tv, ok := v.(T); ok {
		return tv, true
	}
	b, err := json.Marshal(v)
	if err != nil {
		return zero, false
	}
	if err := json.Unmarshal(b, &zero); err != nil {
		return zero, false
	}
	return zero, true
}
