package telemetry

import "github.com/KOMKZ/go-yogan-cache/errcode"

const (
	ModuleCode = 75
	ModuleName = "telemetry"
)

var (
	ErrInvalid = errcode.Register(errcode.New(ModuleCode, 1, ModuleName,
		"telemetry.invalid", "invalid telemetry config"))
	ErrExporter = errcode.Register(errcode.New(ModuleCode, 2, ModuleName,
		"telemetry.exporter", "create telemetry exporter failed"))
	ErrResource = errcode.Register(errcode.New(ModuleCode, 3, ModuleName,
		"telemetry.resource", "create telemetry resource failed"))
)
