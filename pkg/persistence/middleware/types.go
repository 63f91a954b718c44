// Package middleware provides composable wrappers around a MetaStore.
// Window and app metadata routinely carries document titles and file paths;
// these wrappers let deployments encrypt or redact it before it reaches the
// persistence backend.
package middleware

import "github.com/stratadesk/strata/pkg/ports"

// Middleware wraps a MetaStore to add behavior.
type Middleware func(ports.MetaStore) ports.MetaStore

// Chain applies middlewares so the first listed is the outermost.
func Chain(store ports.MetaStore, mws ...Middleware) ports.MetaStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
