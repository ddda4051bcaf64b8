package redis

import "github.com/KOMKZ/go-yogan-cache/errcode"

const (
	ModuleCode = 71
	ModuleName = "redis"
)

var (
	ErrConnect = errcode.Register(errcode.New(ModuleCode, 1, ModuleName,
		"redis.connect", "remote cache connect failed", errcode.KindTransient))
	ErrNotConnected = errcode.Register(errcode.New(ModuleCode, 2, ModuleName,
		"redis.not_connected", "remote cache not connected", errcode.KindTransient))
	ErrPing = errcode.Register(errcode.New(ModuleCode, 3, ModuleName,
		"redis.ping", "remote cache ping failed", errcode.KindTransient))
	ErrInfo = errcode.Register(errcode.New(ModuleCode, 4, ModuleName,
		"redis.info", "remote cache info failed", errcode.KindTransient))
	ErrInvalidURL = errcode.Register(errcode.New(ModuleCode, 5, ModuleName,
		"redis.invalid_url", "invalid remote cache url"))
	ErrConfigInvalid = errcode.Register(errcode.New(ModuleCode, 6, ModuleName,
		"redis.config_invalid", "invalid remote cache config"))
	ErrReconnectExhausted = errcode.Register(errcode.New(ModuleCode, 7, ModuleName,
		"redis.reconnect_exhausted", "remote cache reconnect attempts exhausted", errcode.KindExhausted))
)
