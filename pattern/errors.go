package pattern

import "github.com/KOMKZ/go-yogan-cache/errcode"

const (
	ModuleCode = 72
	ModuleName = "pattern"
)

var (
	ErrNilCallback = errcode.Register(errcode.New(ModuleCode, 1, ModuleName,
		"pattern.nil_callback", "callback must not be nil"))
	ErrClosed = errcode.Register(errcode.New(ModuleCode, 2, ModuleName,
		"pattern.closed", "pattern has been shut down"))
	ErrConfigInvalid = errcode.Register(errcode.New(ModuleCode, 3, ModuleName,
		"pattern.config_invalid", "invalid pattern config"))
	ErrWriteBehindFlush = errcode.Register(errcode.New(ModuleCode, 4, ModuleName,
		"pattern.write_behind_flush", "write-behind flush left failed writes", errcode.KindCallback))
	ErrPool = errcode.Register(errcode.New(ModuleCode, 5, ModuleName,
		"pattern.pool", "worker pool unavailable", errcode.KindTransient))
)
