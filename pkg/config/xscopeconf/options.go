package xscopeconf

import "github.com/omeyang/scopekit/pkg/scope/xscope"

// Options 定义档案加载选项。
type Options struct {
	// Delim 配置键的分隔符，默认为 "."。
	Delim string

	// ProfilesKey 档案节在配置中的键，默认为 "profiles"。
	ProfilesKey string

	// DefaultsKey 公共默认值节的键，默认为 "defaults"。
	DefaultsKey string

	// Merge 档案与默认值的合并函数，默认为 xscope.ShallowMerge。
	Merge xscope.MergeFunc
}

// Option 定义档案加载选项函数类型。
type Option func(*Options)

// defaultOptions 返回默认加载选项。
func defaultOptions() *Options {
	return &Options{
		Delim:       ".",
		ProfilesKey: "profiles",
		DefaultsKey: "defaults",
		Merge:       xscope.ShallowMerge,
	}
}

// WithDelim 设置配置键分隔符。
func WithDelim(delim string) Option {
	return func(o *Options) {
		if delim != "" {
			o.Delim = delim
		}
	}
}

// WithProfilesKey 设置档案节的键。
func WithProfilesKey(key string) Option {
	return func(o *Options) {
		if key != "" {
			o.ProfilesKey = key
		}
	}
}

// WithDefaultsKey 设置默认值节的键。
func WithDefaultsKey(key string) Option {
	return func(o *Options) {
		if key != "" {
			o.DefaultsKey = key
		}
	}
}

// WithMerge 设置档案与默认值的合并函数。
// fn 为 nil 时保持默认的 xscope.ShallowMerge。
func WithMerge(fn xscope.MergeFunc) Option {
	return func(o *Options) {
		if fn != nil {
			o.Merge = fn
		}
	}
}
