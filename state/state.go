// Package state provides the scoped key/value store operators and the
// effect interpreter read and write through. A Scope partitions the
// keyspace so that global, session, workflow, and agent-local state never
// collide, even when two scopes happen to choose the same raw key.
package state

// ScopeKind discriminates which partition of the store a key belongs to.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeSession
	ScopeWorkflow
	ScopeAgent
)

// Scope identifies a partition of the store. The zero value is Global.
type Scope struct {
	Kind ScopeKind
	ID   string
}

func Global() Scope            { return Scope{Kind: ScopeGlobal} }
func Session(id string) Scope  { return Scope{Kind: ScopeSession, ID: id} }
func Workflow(id string) Scope { return Scope{Kind: ScopeWorkflow, ID: id} }
func AgentScope(id string) Scope    { return Scope{Kind: ScopeAgent, ID: id} }

// String renders the scope deterministically so it can be used as half of
// a partitioned key. Two distinct scopes never produce the same string.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeSession:
		return "session:" + s.ID
	case ScopeWorkflow:
		return "workflow:" + s.ID
	case ScopeAgent:
		return "agent:" + s.ID
	default:
		return "global"
	}
}

// partitionKey joins a scope and a raw key into a single composite key.
// The NUL byte cannot occur in Scope.String()'s output or be prevented
// from occurring in an arbitrary raw key, but it separates the two parts
// deterministically: every byte up to the first NUL is the scope, every
// byte after is the key, so no (scope, key) pair can collide with another.
func partitionKey(scope Scope, key string) string {
	return scope.String() + "\x00" + key
}

// Entry is one (scope, key, value) triple returned by List or Search.
type Entry struct {
	Scope Scope
	Key   string
	Value []byte
}

// SearchResult ranks an Entry against a query. Stores that don't support
// search return a nil slice from Search rather than an error.
type SearchResult struct {
	Entry Entry
	Score float64
}
