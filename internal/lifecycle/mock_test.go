package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/imamik/noderoll/internal/cluster"
)

// mockClient is a hand-rolled cluster.Client for driver tests. Each
// operation records its calls and delegates to an optional stub.
type mockClient struct {
	mu    sync.Mutex
	calls []string

	listNodesFunc func(role cluster.Role) ([]cluster.NodeInfo, error)
	getNodeFunc   func(name string) (cluster.NodeInfo, error)
	evictFunc     func(node string) (int, error)
	execFunc      func(node, command string) error
	cordonFunc    func(node string) error
	uncordonFunc  func(node string) error
}

func (m *mockClient) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the operations issued so far, in order.
func (m *mockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockClient) ListNodesByRole(_ context.Context, role cluster.Role) ([]cluster.NodeInfo, error) {
	m.record("list:" + string(role))
	if m.listNodesFunc != nil {
		return m.listNodesFunc(role)
	}
	return nil, nil
}

func (m *mockClient) GetNode(_ context.Context, name string) (cluster.NodeInfo, error) {
	m.record("get:" + name)
	if m.getNodeFunc != nil {
		return m.getNodeFunc(name)
	}
	return cluster.NodeInfo{Name: name, Ready: true, Schedulable: true}, nil
}

func (m *mockClient) EvictWorkloads(_ context.Context, node string, _ time.Duration) (int, error) {
	m.record("evict:" + node)
	if m.evictFunc != nil {
		return m.evictFunc(node)
	}
	return 1, nil
}

func (m *mockClient) ExecPrivileged(_ context.Context, node, command string, _ time.Duration) error {
	m.record("exec:" + node + ":" + command)
	if m.execFunc != nil {
		return m.execFunc(node, command)
	}
	return nil
}

func (m *mockClient) Cordon(_ context.Context, node string) error {
	m.record("cordon:" + node)
	if m.cordonFunc != nil {
		return m.cordonFunc(node)
	}
	return nil
}

func (m *mockClient) Uncordon(_ context.Context, node string, _ time.Duration) error {
	m.record("uncordon:" + node)
	if m.uncordonFunc != nil {
		return m.uncordonFunc(node)
	}
	return nil
}
