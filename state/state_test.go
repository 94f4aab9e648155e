package state

import (
	"context"
	"os"
	"testing"
)

func testStores(t *testing.T) map[string]StateStore {
	t.Helper()
	dir, err := os.MkdirTemp("", "state-test-*")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	return map[string]StateStore{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(dir),
	}
}

func TestScopeIsolation(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			scopes := []Scope{Global(), Session("s1"), Workflow("w1"), AgentScope("a1")}
			for _, scope := range scopes {
				if err := store.Write(ctx, scope, "k", []byte(scope.String())); err != nil {
					t.Fatalf("write: %v", err)
				}
			}
			for _, scope := range scopes {
				v, found, err := store.Read(ctx, scope, "k")
				if err != nil || !found {
					t.Fatalf("read %s: found=%v err=%v", scope, found, err)
				}
				if string(v) != scope.String() {
					t.Fatalf("scope %s leaked value %q from another scope", scope, v)
				}
			}
		})
	}
}

func TestListByPrefix(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			scope := Session("s1")
			keys := []string{"task/a", "task/b", "other/c"}
			for _, k := range keys {
				if err := store.Write(ctx, scope, k, []byte("v-"+k)); err != nil {
					t.Fatalf("write: %v", err)
				}
			}

			entries, err := store.List(ctx, scope, "task/")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries under task/, got %d: %+v", len(entries), entries)
			}
			if entries[0].Key != "task/a" || entries[1].Key != "task/b" {
				t.Fatalf("unexpected keys: %+v", entries)
			}

			err = store.Write(ctx, Workflow("s1"), "task/a", []byte("different-scope"))
			if err != nil {
				t.Fatalf("write other scope: %v", err)
			}
			entries, err = store.List(ctx, scope, "task/")
			if err != nil || len(entries) != 2 {
				t.Fatalf("list leaked across scopes: %d entries, err=%v", len(entries), err)
			}
		})
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			scope := Global()
			if err := store.Delete(ctx, scope, "missing"); err != nil {
				t.Fatalf("delete missing key should not error: %v", err)
			}
			if err := store.Write(ctx, scope, "k", []byte("v")); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := store.Delete(ctx, scope, "k"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := store.Delete(ctx, scope, "k"); err != nil {
				t.Fatalf("second delete should be idempotent: %v", err)
			}
			_, found, err := store.Read(ctx, scope, "k")
			if err != nil || found {
				t.Fatalf("deleted key still readable: found=%v err=%v", found, err)
			}
		})
	}
}
