package xscopeconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/scopekit/pkg/scope/xscope"
)

// =============================================================================
// 测试数据
// =============================================================================

const testYAMLContent = `
defaults:
  env: prod
  region: cn-north
profiles:
  web:
    service: api
    region: cn-south
  batch:
    service: worker
`

const testJSONContent = `{
  "defaults": {
    "env": "prod"
  },
  "profiles": {
    "web": {
      "service": "api"
    }
  }
}`

// =============================================================================
// 辅助函数
// =============================================================================

func createTempFile(t *testing.T, name, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, name)
	err := os.WriteFile(path, []byte(content), 0600)
	require.NoError(t, err)
	return path
}

// =============================================================================
// New 函数测试
// =============================================================================

func TestNew_YAML(t *testing.T) {
	path := createTempFile(t, "profiles.yaml", testYAMLContent)

	p, err := New(path)
	require.NoError(t, err)
	require.NotNil(t, p)

	assert.Equal(t, path, p.Path())
	assert.Equal(t, FormatYAML, p.Format())
	assert.Equal(t, []string{"batch", "web"}, p.Names())

	// 档案覆盖 defaults 中的同名键
	web, ok := p.Profile("web")
	require.True(t, ok)
	assert.Equal(t, xscope.Store{
		"env":     "prod",
		"region":  "cn-south",
		"service": "api",
	}, web)

	// 未覆盖的键继承 defaults
	batch, ok := p.Profile("batch")
	require.True(t, ok)
	assert.Equal(t, "cn-north", batch["region"])
	assert.Equal(t, "worker", batch["service"])
}

func TestNew_JSON(t *testing.T) {
	path := createTempFile(t, "profiles.json", testJSONContent)

	p, err := New(path)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, p.Format())

	web, ok := p.Profile("web")
	require.True(t, ok)
	assert.Equal(t, "prod", web["env"])
	assert.Equal(t, "api", web["service"])
}

func TestNew_Errors(t *testing.T) {
	t.Run("空路径", func(t *testing.T) {
		_, err := New("")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("未知扩展名", func(t *testing.T) {
		_, err := New("profiles.toml")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("文件不存在", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, ErrLoadFailed)
	})

	t.Run("语法错误", func(t *testing.T) {
		path := createTempFile(t, "bad.yaml", "profiles: [\n  broken")
		_, err := New(path)
		assert.ErrorIs(t, err, ErrParseFailed)
	})

	t.Run("profiles 节不是映射", func(t *testing.T) {
		path := createTempFile(t, "flat.yaml", "profiles: 42\n")
		_, err := New(path)
		assert.ErrorIs(t, err, ErrInvalidProfiles)
	})

	t.Run("档案值不是映射", func(t *testing.T) {
		path := createTempFile(t, "scalar.yaml", "profiles:\n  web: hello\n")
		_, err := New(path)
		assert.ErrorIs(t, err, ErrInvalidProfiles)
	})
}

// =============================================================================
// NewFromBytes 函数测试
// =============================================================================

func TestNewFromBytes(t *testing.T) {
	t.Run("YAML 数据", func(t *testing.T) {
		p, err := NewFromBytes([]byte(testYAMLContent), FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, p.Path())
		assert.Equal(t, []string{"batch", "web"}, p.Names())
	})

	t.Run("空数据创建空实例", func(t *testing.T) {
		p, err := NewFromBytes(nil, FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, p.Names())
		assert.Empty(t, p.Defaults())

		_, ok := p.Profile("web")
		assert.False(t, ok)
	})

	t.Run("无效格式", func(t *testing.T) {
		_, err := NewFromBytes([]byte("{}"), Format("toml"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("从字节创建的实例不能 Reload", func(t *testing.T) {
		p, err := NewFromBytes([]byte(testJSONContent), FormatJSON)
		require.NoError(t, err)
		assert.Error(t, p.Reload())
	})
}

// =============================================================================
// 读取语义测试
// =============================================================================

func TestProfile_ReturnsDeepCopy(t *testing.T) {
	p, err := NewFromBytes([]byte(testYAMLContent), FormatYAML)
	require.NoError(t, err)

	first, ok := p.Profile("web")
	require.True(t, ok)
	first["service"] = "hacked"
	first["extra"] = true

	second, ok := p.Profile("web")
	require.True(t, ok)
	assert.Equal(t, "api", second["service"])
	assert.NotContains(t, second, "extra")
}

func TestProfiles_All(t *testing.T) {
	p, err := NewFromBytes([]byte(testYAMLContent), FormatYAML)
	require.NoError(t, err)

	all := p.Profiles()
	require.Len(t, all, 2)
	assert.Equal(t, "api", all["web"]["service"])
	assert.Equal(t, "prod", all["batch"]["env"])

	// 返回的是深拷贝
	all["web"]["service"] = "mutated"
	again, _ := p.Profile("web")
	assert.Equal(t, "api", again["service"])
}

func TestDefaults_ReturnsDeepCopy(t *testing.T) {
	p, err := NewFromBytes([]byte(testYAMLContent), FormatYAML)
	require.NoError(t, err)

	d := p.Defaults()
	d["env"] = "dev"
	assert.Equal(t, "prod", p.Defaults()["env"])
}

func TestProfile_MissingName(t *testing.T) {
	p, err := NewFromBytes([]byte(testYAMLContent), FormatYAML)
	require.NoError(t, err)

	store, ok := p.Profile("nope")
	assert.False(t, ok)
	assert.Nil(t, store)
}

func TestNew_NoProfilesSection(t *testing.T) {
	p, err := NewFromBytes([]byte("defaults:\n  env: prod\n"), FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, p.Names())
	assert.Equal(t, "prod", p.Defaults()["env"])
}

// =============================================================================
// 选项测试
// =============================================================================

func TestOptions_CustomKeys(t *testing.T) {
	content := `
base:
  env: prod
tenants:
  acme:
    plan: gold
`
	p, err := NewFromBytes([]byte(content), FormatYAML,
		WithProfilesKey("tenants"), WithDefaultsKey("base"))
	require.NoError(t, err)

	acme, ok := p.Profile("acme")
	require.True(t, ok)
	assert.Equal(t, "prod", acme["env"])
	assert.Equal(t, "gold", acme["plan"])
}

func TestOptions_CustomMerge(t *testing.T) {
	// 忽略 defaults，只取档案本身
	onlyProfile := func(_, patch xscope.Store) xscope.Store {
		return patch.Clone()
	}

	p, err := NewFromBytes([]byte(testYAMLContent), FormatYAML, WithMerge(onlyProfile))
	require.NoError(t, err)

	web, ok := p.Profile("web")
	require.True(t, ok)
	assert.NotContains(t, web, "env")
	assert.Equal(t, "api", web["service"])
}

// =============================================================================
// Reload 测试
// =============================================================================

func TestReload(t *testing.T) {
	path := createTempFile(t, "profiles.yaml", testYAMLContent)

	p, err := New(path)
	require.NoError(t, err)

	updated := `
profiles:
  web:
    service: api-v2
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))
	require.NoError(t, p.Reload())

	web, ok := p.Profile("web")
	require.True(t, ok)
	assert.Equal(t, "api-v2", web["service"])
	assert.NotContains(t, web, "env")

	_, ok = p.Profile("batch")
	assert.False(t, ok)
}

func TestReload_Concurrent(t *testing.T) {
	path := createTempFile(t, "profiles.yaml", testYAMLContent)

	p, err := New(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if j%5 == 0 {
					assert.NoError(t, p.Reload())
				}
				if web, ok := p.Profile("web"); ok {
					assert.Equal(t, "api", web["service"])
				}
				_ = p.Names()
			}
		}()
	}
	wg.Wait()
}

// =============================================================================
// Client 透传测试
// =============================================================================

func TestClient(t *testing.T) {
	content := testYAMLContent + "log_level: debug\n"
	p, err := NewFromBytes([]byte(content), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "debug", p.Client().String("log_level"))
	assert.Equal(t, "api", p.Client().String("profiles.web.service"))
}
