package asset

// RequestNotify registers a one-shot callback for handle's next Ready
// transition. If handle is already Ready, cb fires immediately (after the
// registry lock is released, never while held). A no-op if handle is not
// a live entity.
func (m *Manager) RequestNotify(h Handle, cb Callback) {
	m.mu.Lock()
	if !m.pool.Alive(h) {
		m.mu.Unlock()
		return
	}
	if m.infoCol.Get(int(h.Index)).state == Ready {
		m.mu.Unlock()
		cb(h)
		return
	}
	m.oneShot[h] = append(m.oneShot[h], cb)
	m.mu.Unlock()
}

// Listen registers a persistent callback fired on every Ready transition
// of handle, including the initial load and every subsequent reload. If
// handle is already Ready, cb also fires immediately. Listeners on the
// same handle are kept in a map, so Update fires them in no defined order.
// Returns 0 if handle is not a live entity.
func (m *Manager) Listen(h Handle, cb Callback) ListenerHandle {
	m.mu.Lock()
	if !m.pool.Alive(h) {
		m.mu.Unlock()
		return 0
	}
	id := ListenerHandle(m.listenerID.Add(1))
	if m.persistent[h] == nil {
		m.persistent[h] = make(map[ListenerHandle]Callback)
	}
	m.persistent[h][id] = cb
	alreadyReady := m.infoCol.Get(int(h.Index)).state == Ready
	m.mu.Unlock()

	if alreadyReady {
		cb(h)
	}
	return id
}

// Unlisten removes a persistent listener registered by Listen.
func (m *Manager) Unlisten(h Handle, id ListenerHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if listeners, ok := m.persistent[h]; ok {
		delete(listeners, id)
	}
}
