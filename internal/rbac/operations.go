package rbac

import (
	"sort"
	"sync"
)

// Operation identifiers are free-form dotted strings such as
// "feedbacks.list". Each route file registers its operations at init time so
// the requirement table is complete before the router is built and stays
// inspectable for admin tooling.

var opRegistry = struct {
	mu  sync.RWMutex
	ops map[string][]string
}{ops: make(map[string][]string)}

// RegisterOperation declares the permissions required by an operation.
// Registering the same identifier twice replaces the earlier declaration.
// Zero permissions declares an authenticated-only gate.
func RegisterOperation(op string, perms ...string) {
	normalized := normalizePermissions(perms)
	opRegistry.mu.Lock()
	defer opRegistry.mu.Unlock()
	opRegistry.ops[op] = normalized
}

// RequiredPermissions returns the declaration for an operation. The second
// return value is false for unknown operations.
func RequiredPermissions(op string) ([]string, bool) {
	opRegistry.mu.RLock()
	defer opRegistry.mu.RUnlock()
	perms, ok := opRegistry.ops[op]
	if !ok {
		return nil, false
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out, true
}

// Operations lists all registered operation identifiers in sorted order.
func Operations() []string {
	opRegistry.mu.RLock()
	defer opRegistry.mu.RUnlock()
	ops := make([]string, 0, len(opRegistry.ops))
	for op := range opRegistry.ops {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}
