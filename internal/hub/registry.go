package hub

// registry indexes live connections: every conn by id, host conns by user id,
// and visitor conns by the host they watch (insertion order). It holds no
// lock of its own; the hub serializes all access.
type registry struct {
	conns    map[string]*Conn
	hosts    map[string]*Conn
	watchers map[string][]*Conn
}

func newRegistry() *registry {
	return &registry{
		conns:    make(map[string]*Conn),
		hosts:    make(map[string]*Conn),
		watchers: make(map[string][]*Conn),
	}
}

func (r *registry) add(c *Conn) {
	r.conns[c.ID] = c
}

// remove drops the conn from every index. Idempotent: a second remove of the
// same conn reports false and changes nothing.
func (r *registry) remove(c *Conn) bool {
	if _, ok := r.conns[c.ID]; !ok {
		return false
	}
	delete(r.conns, c.ID)
	if c.userID != "" && r.hosts[c.userID] == c {
		delete(r.hosts, c.userID)
	}
	if c.watchedHostID != "" {
		r.dropWatcher(c.watchedHostID, c)
	}
	return true
}

func (r *registry) hostConn(userID string) (*Conn, bool) {
	c, ok := r.hosts[userID]
	if !ok || c.role != RoleHost {
		return nil, false
	}
	return c, true
}

// subscribers returns a snapshot of the watcher list so callers can iterate
// while other connections churn.
func (r *registry) subscribers(hostID string) []*Conn {
	watchers := r.watchers[hostID]
	if len(watchers) == 0 {
		return nil
	}
	return append([]*Conn(nil), watchers...)
}

// setHost classifies c as the host connection for userID. A prior watcher
// entry or host identity on c is released first, so the indexes always agree
// with the conn's current classification. Returns the conn previously indexed
// under userID (if any) and the host identity c gave up (if any).
func (r *registry) setHost(c *Conn, userID string) (prev *Conn, released string) {
	if c.watchedHostID != "" {
		r.dropWatcher(c.watchedHostID, c)
		c.watchedHostID = ""
	}
	if c.userID != "" && c.userID != userID && r.hosts[c.userID] == c {
		delete(r.hosts, c.userID)
		released = c.userID
	}
	prev = r.hosts[userID]
	if prev == c {
		prev = nil
	}
	c.role = RoleHost
	c.userID = userID
	r.hosts[userID] = c
	return prev, released
}

// setWatch classifies c as a visitor watching hostID. Re-subscribing moves
// the conn to the new host's watcher list; a conn that was indexed as a host
// gives up that identity, which is returned so the caller can broadcast the
// transition.
func (r *registry) setWatch(c *Conn, hostID string) (released string) {
	if c.userID != "" {
		if r.hosts[c.userID] == c {
			delete(r.hosts, c.userID)
			released = c.userID
		}
		c.userID = ""
	}
	if c.watchedHostID == hostID {
		c.role = RoleVisitor
		return released
	}
	if c.watchedHostID != "" {
		r.dropWatcher(c.watchedHostID, c)
	}
	c.role = RoleVisitor
	c.watchedHostID = hostID
	r.watchers[hostID] = append(r.watchers[hostID], c)
	return released
}

func (r *registry) dropWatcher(hostID string, c *Conn) {
	watchers := r.watchers[hostID]
	for i, w := range watchers {
		if w == c {
			r.watchers[hostID] = append(watchers[:i], watchers[i+1:]...)
			break
		}
	}
	if len(r.watchers[hostID]) == 0 {
		delete(r.watchers, hostID)
	}
}
