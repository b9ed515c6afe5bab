package statetree

// HookHandler receives a lifecycle hook for node.
type HookHandler func(node Node, hook Hook)

type hookSubscription struct {
	fn HookHandler
}

// HookDispatcher is the per-node registry of lifecycle hook subscribers.
// Subscribers for one hook run in registration order.
type HookDispatcher struct {
	handlers map[Hook][]*hookSubscription
}

// Register subscribes fn to hook and returns a function that removes the
// subscription again. Nil handlers are ignored.
func (d *HookDispatcher) Register(hook Hook, fn HookHandler) (unregister func()) {
	if fn == nil {
		return func() {}
	}
	if d.handlers == nil {
		d.handlers = make(map[Hook][]*hookSubscription)
	}
	sub := &hookSubscription{fn: fn}
	d.handlers[hook] = append(d.handlers[hook], sub)
	return func() {
		d.unregister(hook, sub)
	}
}

func (d *HookDispatcher) unregister(hook Hook, sub *hookSubscription) {
	subs := d.handlers[hook]
	for i, candidate := range subs {
		if candidate != sub {
			continue
		}
		next := make([]*hookSubscription, 0, len(subs)-1)
		next = append(next, subs[:i]...)
		next = append(next, subs[i+1:]...)
		if len(next) == 0 {
			delete(d.handlers, hook)
			return
		}
		d.handlers[hook] = next
		return
	}
}

// Has reports whether hook has at least one subscriber.
func (d *HookDispatcher) Has(hook Hook) bool {
	return d != nil && len(d.handlers[hook]) > 0
}

// Len returns the number of subscriptions across all hooks.
func (d *HookDispatcher) Len() int {
	if d == nil {
		return 0
	}
	total := 0
	for _, subs := range d.handlers {
		total += len(subs)
	}
	return total
}

// Emit calls every subscriber of hook. Handlers registered or removed while
// emitting do not affect the current emission.
func (d *HookDispatcher) Emit(hook Hook, node Node) {
	if d == nil {
		return
	}
	subs := d.handlers[hook]
	if len(subs) == 0 {
		return
	}
	snapshot := append([]*hookSubscription(nil), subs...)
	for _, sub := range snapshot {
		sub.fn(node, hook)
	}
}

// Clear drops the subscribers of a single hook.
func (d *HookDispatcher) Clear(hook Hook) {
	if d == nil {
		return
	}
	delete(d.handlers, hook)
}

// ClearAll drops every subscription.
func (d *HookDispatcher) ClearAll() {
	if d == nil {
		return
	}
	d.handlers = nil
}
