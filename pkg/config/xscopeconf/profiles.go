package xscopeconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式（推荐用于 K8s ConfigMap）。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Profiles 定义档案访问接口。
type Profiles interface {
	// Profile 返回指定档案与默认值合并后的深拷贝。
	// 档案不存在时返回 (nil, false)。
	Profile(name string) (xscope.Store, bool)

	// Profiles 返回全部档案（均已与默认值合并）的深拷贝。
	Profiles() map[string]xscope.Store

	// Defaults 返回默认值节的深拷贝。未配置时返回空 Store。
	Defaults() xscope.Store

	// Names 返回全部档案名，按字典序排序。
	Names() []string

	// Client 返回底层的 koanf 实例，用于读取档案之外的配置。
	Client() *koanf.Koanf

	// Reload 重新加载配置文件并重建档案。
	// 此方法是并发安全的。从字节数据创建的实例调用会返回错误。
	Reload() error

	// Path 返回配置文件路径。从字节数据创建的实例返回空字符串。
	Path() string

	// Format 返回配置格式。
	Format() Format
}

// koanfProfiles 是 Profiles 接口的 koanf 实现。
type koanfProfiles struct {
	path    string
	format  Format
	opts    *Options
	isBytes bool

	mu       sync.RWMutex
	k        *koanf.Koanf
	defaults xscope.Store
	profiles map[string]xscope.Store
}

// New 从文件路径创建档案实例。
// 根据文件扩展名自动检测格式（.yaml/.yml 或 .json）。
func New(path string, opts ...Option) (Profiles, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	p := &koanfProfiles{
		path:    path,
		format:  format,
		opts:    options,
		isBytes: false,
	}
	if err := p.load(data); err != nil {
		return nil, err
	}
	return p, nil
}

// NewFromBytes 从字节数据创建档案实例。
// 需要显式指定格式，适用于 K8s ConfigMap 等场景。
// 空数据会创建一个无档案的空实例。
func NewFromBytes(data []byte, format Format, opts ...Option) (Profiles, error) {
	if !isValidFormat(format) {
		return nil, ErrUnsupportedFormat
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	p := &koanfProfiles{
		path:    "",
		format:  format,
		opts:    options,
		isBytes: true,
	}
	if err := p.load(data); err != nil {
		return nil, err
	}
	return p, nil
}

// Profile 返回指定档案与默认值合并后的深拷贝。
func (p *koanfProfiles) Profile(name string) (xscope.Store, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	prof, ok := p.profiles[name]
	if !ok {
		return nil, false
	}
	return p.opts.Merge(p.defaults, prof).Clone(), true
}

// Profiles 返回全部档案（均已与默认值合并）的深拷贝。
func (p *koanfProfiles) Profiles() map[string]xscope.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]xscope.Store, len(p.profiles))
	for name, prof := range p.profiles {
		out[name] = p.opts.Merge(p.defaults, prof).Clone()
	}
	return out
}

// Defaults 返回默认值节的深拷贝。
func (p *koanfProfiles) Defaults() xscope.Store {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.defaults.Clone()
}

// Names 返回全部档案名，按字典序排序。
func (p *koanfProfiles) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.profiles))
	for name := range p.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Client 返回底层的 koanf 实例。
func (p *koanfProfiles) Client() *koanf.Koanf {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.k
}

// Reload 重新加载配置文件并重建档案。
func (p *koanfProfiles) Reload() error {
	if p.isBytes {
		return errors.New("xscopeconf: cannot reload profiles created from bytes")
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	return p.load(data)
}

// Path 返回配置文件路径。
func (p *koanfProfiles) Path() string {
	return p.path
}

// Format 返回配置格式。
func (p *koanfProfiles) Format() Format {
	return p.format
}

// load 解析数据并原子替换档案视图。
func (p *koanfProfiles) load(data []byte) error {
	k := koanf.New(p.opts.Delim)
	if len(data) > 0 {
		if err := loadData(k, data, p.format); err != nil {
			return err
		}
	}

	defaults, err := sectionStore(k, p.opts.DefaultsKey)
	if err != nil {
		return err
	}

	profiles := make(map[string]xscope.Store)
	if raw := k.Get(p.opts.ProfilesKey); raw != nil {
		section, ok := raw.(map[string]any)
		if !ok {
			return ErrInvalidProfiles
		}
		for name, v := range section {
			m, ok := v.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: profile %q", ErrInvalidProfiles, name)
			}
			profiles[name] = xscope.Store(m)
		}
	}

	p.mu.Lock()
	p.k = k
	p.defaults = defaults
	p.profiles = profiles
	p.mu.Unlock()
	return nil
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// sectionStore 读取顶层映射节，缺失时返回空 Store。
func sectionStore(k *koanf.Koanf, key string) (xscope.Store, error) {
	raw := k.Get(key)
	if raw == nil {
		return xscope.Store{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: section %q is not a map", ErrParseFailed, key)
	}
	return xscope.Store(m), nil
}

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// isValidFormat 检查格式是否有效。
func isValidFormat(format Format) bool {
	switch format {
	case FormatYAML, FormatJSON:
		return true
	default:
		return false
	}
}

// loadData 加载数据到 koanf 实例。
func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return ErrUnsupportedFormat
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
