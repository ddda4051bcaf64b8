package cache

import "github.com/KOMKZ/go-yogan-cache/errcode"

const (
	ModuleCode = 70
	ModuleName = "cache"
)

var (
	// ErrCacheMiss is returned by stores; the manager turns it into found=false.
	ErrCacheMiss = errcode.Register(errcode.New(ModuleCode, 1, ModuleName,
		"cache.miss", "cache miss"))
	ErrInvalidKey = errcode.Register(errcode.New(ModuleCode, 2, ModuleName,
		"cache.invalid_key", "invalid cache key"))
	ErrInvalidTag = errcode.Register(errcode.New(ModuleCode, 3, ModuleName,
		"cache.invalid_tag", "invalid cache tag"))
	ErrSerialize = errcode.Register(errcode.New(ModuleCode, 4, ModuleName,
		"cache.serialize", "cache value serialization failed"))
	ErrDeserialize = errcode.Register(errcode.New(ModuleCode, 5, ModuleName,
		"cache.deserialize", "cache value deserialization failed"))
	ErrStoreGet = errcode.Register(errcode.New(ModuleCode, 6, ModuleName,
		"cache.store_get", "cache store get failed", errcode.KindTransient))
	ErrStoreSet = errcode.Register(errcode.New(ModuleCode, 7, ModuleName,
		"cache.store_set", "cache store set failed", errcode.KindTransient))
	ErrStoreDelete = errcode.Register(errcode.New(ModuleCode, 8, ModuleName,
		"cache.store_delete", "cache store delete failed", errcode.KindTransient))
	ErrConfigInvalid = errcode.Register(errcode.New(ModuleCode, 9, ModuleName,
		"cache.config_invalid", "invalid cache config"))
)
