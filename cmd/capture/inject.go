//go:generate go run github.com/google/wire/cmd/wire
//go:build wireinject
// +build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/nymics/udpcdc/internal/wiring"
)

// InitializeCapture is never compiled into the binary; it exists only
// so `go generate` can regenerate wire_gen.go from this provider set.
func InitializeCapture(ctx context.Context, cli *wiring.CLIConfig) (*captureApp, error) {
	panic(wire.Build(
		wiring.LoadProjectConfig,
		wiring.ResolveProject,
		wiring.ResolveDatabase,
		wiring.ResolveCloud,
		wire.Struct(new(captureApp), "*"),
	))
}
