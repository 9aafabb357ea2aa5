// 包 config：服务配置（默认值 → YAML 文件 → 环境变量，后者覆盖前者）
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"vote-map/internal/atlas"
	"vote-map/internal/render"
	"vote-map/internal/results"

	"github.com/goccy/go-yaml"
)

type Redis struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Pass    string `yaml:"pass"`
	DB      int    `yaml:"db"`
}

type RateLimit struct {
	Enabled bool `yaml:"enabled"`
	QPS     int  `yaml:"qps"`
}

// 文档注释：服务配置
// 背景：输入文件路径、色阶与底图、缓存与限流均可通过 .env、环境变量或 CONFIG_FILE 指定的 YAML 覆盖。
// 约束：Load 之后必须 Validate；MapCacheTTLSeconds<=0 表示不写缓存。
type Config struct {
	Addr              string    `yaml:"addr"`
	APIBase           string    `yaml:"api_base"`
	ResultsPath       string    `yaml:"results_path"`
	CommuneGeoJSON    string    `yaml:"commune_geojson"`
	DepartmentGeoJSON string    `yaml:"department_geojson"`
	ExcludedPrefix    string    `yaml:"excluded_dep_prefix"`
	CSVDelimiter      string    `yaml:"csv_delimiter"`
	MapBins           int       `yaml:"map_bins"`
	NoDataColor       string    `yaml:"map_nodata_color"`
	TilesLightURL     string    `yaml:"tiles_light_url"`
	TilesDarkURL      string    `yaml:"tiles_dark_url"`
	MapCacheTTLS      int       `yaml:"map_cache_ttl_s"`
	LocateRadiusKm    float64   `yaml:"locate_radius_km"`
	Redis             Redis     `yaml:"redis"`
	RateLimit         RateLimit `yaml:"rate_limit"`
}

func Default() *Config {
	return &Config{
		Addr:              ":8080",
		APIBase:           "/api",
		ResultsPath:       filepath.Join("data", "resultats-par-commune.csv"),
		CommuneGeoJSON:    filepath.Join("data", "communes.geojson"),
		DepartmentGeoJSON: filepath.Join("data", "departements.geojson"),
		ExcludedPrefix:    "Z",
		CSVDelimiter:      ",",
		MapBins:           render.DefaultBins,
		NoDataColor:       render.DefaultNoDataColor,
		TilesLightURL:     render.DefaultLightTiles.URL,
		TilesDarkURL:      render.DefaultDarkTiles.URL,
		MapCacheTTLS:      600,
		LocateRadiusKm:    25,
		Redis:             Redis{Host: "127.0.0.1", Port: "6379"},
		RateLimit:         RateLimit{QPS: 200},
	}
}

// Load：按进程环境加载配置
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom：使用给定的环境读取函数加载配置（便于测试注入）
func LoadFrom(getenv func(string) string) (*Config, error) {
	c := Default()
	if p := getenv("CONFIG_FILE"); p != "" {
		if err := c.mergeFile(p); err != nil {
			return nil, err
		}
	}
	if err := c.applyEnv(getenv); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("ADDR", &c.Addr)
	str("API_BASE", &c.APIBase)
	str("RESULTS_PATH", &c.ResultsPath)
	str("COMMUNE_GEOJSON", &c.CommuneGeoJSON)
	str("DEPARTMENT_GEOJSON", &c.DepartmentGeoJSON)
	str("EXCLUDED_DEP_PREFIX", &c.ExcludedPrefix)
	str("CSV_DELIMITER", &c.CSVDelimiter)
	str("MAP_NODATA_COLOR", &c.NoDataColor)
	str("TILES_LIGHT_URL", &c.TilesLightURL)
	str("TILES_DARK_URL", &c.TilesDarkURL)
	str("REDIS_HOST", &c.Redis.Host)
	str("REDIS_PORT", &c.Redis.Port)
	str("REDIS_PASS", &c.Redis.Pass)

	var errs []error
	num := func(key string, dst *int) {
		v := getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v := getenv(key)
		if v == "" {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
	num("MAP_BINS", &c.MapBins)
	num("MAP_CACHE_TTL_S", &c.MapCacheTTLS)
	num("REDIS_DB", &c.Redis.DB)
	num("RATE_LIMIT_QPS", &c.RateLimit.QPS)
	flag("REDIS_ENABLED", &c.Redis.Enabled)
	flag("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	if v := getenv("LOCATE_RADIUS_KM"); v != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOCATE_RADIUS_KM: %w", err))
		} else {
			c.LocateRadiusKm = f
		}
	}
	return errors.Join(errs...)
}

// Validate：校验取值范围；错误合并返回
func (c *Config) Validate() error {
	var errs []error
	if c.ResultsPath == "" || c.CommuneGeoJSON == "" || c.DepartmentGeoJSON == "" {
		errs = append(errs, errors.New("input paths must not be empty"))
	}
	if !strings.HasPrefix(c.APIBase, "/") || strings.HasSuffix(c.APIBase, "/") {
		errs = append(errs, fmt.Errorf("api base %q must start with / and not end with /", c.APIBase))
	}
	if c.MapBins < render.MinBins || c.MapBins > render.MaxBins {
		errs = append(errs, fmt.Errorf("map bins %d out of range [%d,%d]", c.MapBins, render.MinBins, render.MaxBins))
	}
	if _, err := c.Delimiter(); err != nil {
		errs = append(errs, err)
	}
	if c.LocateRadiusKm < 0 {
		errs = append(errs, fmt.Errorf("locate radius %v must not be negative", c.LocateRadiusKm))
	}
	if c.RateLimit.Enabled && c.RateLimit.QPS <= 0 {
		errs = append(errs, fmt.Errorf("rate limit qps %d must be positive", c.RateLimit.QPS))
	}
	if c.Redis.DB < 0 {
		errs = append(errs, fmt.Errorf("redis db %d must not be negative", c.Redis.DB))
	}
	return errors.Join(errs...)
}

// Delimiter：CSV 分隔符；接受单个字符或 "tab"/"\t"
func (c *Config) Delimiter() (rune, error) {
	d := c.CSVDelimiter
	switch strings.ToLower(d) {
	case "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(d) != 1 {
		return 0, fmt.Errorf("csv delimiter %q must be a single character", d)
	}
	r, _ := utf8.DecodeRuneInString(d)
	if r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("csv delimiter %q is not allowed", d)
	}
	return r, nil
}

func (c *Config) MapCacheTTL() time.Duration {
	return time.Duration(c.MapCacheTTLS) * time.Second
}

func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// Sources：转换为数据集加载参数（调用前需 Validate）
func (c *Config) Sources() atlas.Sources {
	d, _ := c.Delimiter()
	light, dark := render.DefaultLightTiles, render.DefaultDarkTiles
	if c.TilesLightURL != "" && c.TilesLightURL != light.URL {
		light = render.Tiles{URL: c.TilesLightURL}
	}
	if c.TilesDarkURL != "" && c.TilesDarkURL != dark.URL {
		dark = render.Tiles{URL: c.TilesDarkURL}
	}
	return atlas.Sources{
		ResultsPath:    c.ResultsPath,
		CommunePath:    c.CommuneGeoJSON,
		DepartmentPath: c.DepartmentGeoJSON,
		Load:           results.LoadOptions{ExcludedPrefix: c.ExcludedPrefix, Delimiter: d},
		Render: render.Options{
			Bins:        c.MapBins,
			NoDataColor: c.NoDataColor,
			Light:       light,
			Dark:        dark,
		},
	}
}
