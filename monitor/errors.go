package monitor

import "github.com/KOMKZ/go-yogan-cache/errcode"

const (
	ModuleCode = 73
	ModuleName = "monitor"
)

var (
	ErrConfigInvalid = errcode.Register(errcode.New(ModuleCode, 1, ModuleName,
		"monitor.config_invalid", "invalid monitor config"))
	ErrScheduler = errcode.Register(errcode.New(ModuleCode, 2, ModuleName,
		"monitor.scheduler", "monitor scheduler failed"))
	ErrUnhealthy = errcode.Register(errcode.New(ModuleCode, 3, ModuleName,
		"monitor.unhealthy", "cache is unhealthy", errcode.KindTransient))
	ErrDegraded = errcode.Register(errcode.New(ModuleCode, 4, ModuleName,
		"monitor.degraded", "cache is degraded", errcode.KindTransient))
)
