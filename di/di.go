// Package di wires the cache subsystem together with samber/do.
//
// Providers build each component lazily from config.Settings; Stack resolves
// them in dependency order and tears them down in the reverse of the order
// data flows through them.
package di

import "github.com/samber/do/v2"

// Injector aliases the samber/do injector interface.
type Injector = do.Injector

// RootScope aliases the samber/do root scope.
type RootScope = do.RootScope

// New creates an empty root injector.
var New = do.New
