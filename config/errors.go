package config

import "github.com/KOMKZ/go-yogan-cache/errcode"

const (
	ModuleCode = 74
	ModuleName = "config"
)

var (
	ErrLoad = errcode.Register(errcode.New(ModuleCode, 1, ModuleName,
		"config.load", "load configuration failed"))
	ErrDecode = errcode.Register(errcode.New(ModuleCode, 2, ModuleName,
		"config.decode", "decode configuration failed"))
	ErrInvalid = errcode.Register(errcode.New(ModuleCode, 3, ModuleName,
		"config.invalid", "invalid configuration"))
)
