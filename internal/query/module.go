package query

import "go.uber.org/fx"

// Module is a placeholder fx.Module: the Query Layer is a pure-function
// package with no constructor state, kept as a Module for symmetry with its
// sibling internal packages so internal/app can fx.Options() them uniformly.
var Module = fx.Module("query")
