package xscopeconf

import "errors"

// 档案加载和解析相关错误。
var (
	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xscopeconf: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xscopeconf: unsupported config format")

	// ErrLoadFailed 表示配置加载失败。
	ErrLoadFailed = errors.New("xscopeconf: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xscopeconf: failed to parse config")

	// ErrInvalidProfiles 表示 profiles 节不是键到映射的结构。
	ErrInvalidProfiles = errors.New("xscopeconf: profiles section must map names to key/value sets")
)
