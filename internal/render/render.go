package render

import (
	"errors"
	"fmt"
	"time"

	"vote-map/internal/geo"
	"vote-map/internal/logger"
	"vote-map/internal/metrics"
	"vote-map/internal/results"

	"github.com/twpayne/go-geom/encoding/geojson"
)

var ErrUnknownMetric = errors.New("unknown metric")

const (
	DefaultNoDataColor = "#000000"
	FillOpacity        = 1.0
	LineOpacity        = 0.2
)

// Tiles：底图瓦片源
type Tiles struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

var (
	DefaultLightTiles = Tiles{
		URL:         "https://{s}.basemaps.cartocdn.com/light_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
	}
	DefaultDarkTiles = Tiles{
		URL:         "https://{s}.basemaps.cartocdn.com/dark_all/{z}/{x}/{y}{r}.png",
		Attribution: `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`,
	}
)

// Options：渲染器配置
type Options struct {
	Bins        int
	NoDataColor string
	Light       Tiles
	Dark        Tiles
}

func DefaultOptions() Options {
	return Options{
		Bins:        DefaultBins,
		NoDataColor: DefaultNoDataColor,
		Light:       DefaultLightTiles,
		Dark:        DefaultDarkTiles,
	}
}

// Input：一次渲染的输入
type Input struct {
	Rows     []results.Measurable
	Geometry *geo.Collection
	Metric   results.Metric
	Legend   string
	Frame    geo.Frame
	Dark     bool
}

// Legend：图例
type Legend struct {
	Title       string    `json:"title"`
	Colors      []string  `json:"colors"`
	Edges       []float64 `json:"edges"`
	Labels      []string  `json:"labels"`
	NoDataColor string    `json:"no_data_color"`
}

// Stats：连接统计（未匹配数即连接告警）
type Stats struct {
	Features          int `json:"features"`
	Rows              int `json:"rows"`
	Colored           int `json:"colored"`
	UnmatchedFeatures int `json:"unmatched_features"`
	UnmatchedRows     int `json:"unmatched_rows"`
}

// 文档注释：地图产物
// 约束：每个几何要素都出现在 Features 中；无数据要素使用 NoDataColor 填充；要素属性含 code/name/value/fill/class。
type Map struct {
	Metric      results.Metric             `json:"metric"`
	Frame       geo.Frame                  `json:"frame"`
	Tiles       Tiles                      `json:"tiles"`
	Dark        bool                       `json:"dark"`
	FillOpacity float64                    `json:"fill_opacity"`
	LineOpacity float64                    `json:"line_opacity"`
	Legend      Legend                     `json:"legend"`
	Features    *geojson.FeatureCollection `json:"features"`
	Stats       Stats                      `json:"stats"`
}

// 文档注释：分级设色渲染器
// 背景：把选择视图的行按 area_code 与几何要素精确连接，用等宽 BuPu 色阶着色，产出可序列化的地图产物。
// 约束：对输入为纯函数（除日志与指标）；构建后只读，可并发使用。
type Renderer struct {
	opts    Options
	palette []string
}

func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Bins == 0 {
		opts.Bins = DefaultBins
	}
	p, err := Palette(opts.Bins)
	if err != nil {
		return nil, err
	}
	if opts.NoDataColor == "" {
		opts.NoDataColor = DefaultNoDataColor
	}
	nd, err := normalizeColor(opts.NoDataColor)
	if err != nil {
		return nil, err
	}
	opts.NoDataColor = nd
	if opts.Light.URL == "" {
		opts.Light = DefaultLightTiles
	}
	if opts.Dark.URL == "" {
		opts.Dark = DefaultDarkTiles
	}
	return &Renderer{opts: opts, palette: p}, nil
}

// 文档注释：渲染一次选择
// 背景：连接键为字符串精确匹配；无匹配或缺失值的要素以无数据色绘制而非省略，无几何的行不绘制；两类未匹配数计入统计、日志与指标。
// 约束：未知指标 → ErrUnknownMetric；空子集返回零着色要素的有效地图。
func (r *Renderer) Render(in Input) (*Map, error) {
	start := time.Now()
	metric := in.Metric
	if metric == "" {
		metric = results.MetricVoteShare
	}
	if !results.KnownMetric(metric) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	values := make(map[string]float64, len(in.Rows))
	seen := make(map[string]struct{}, len(in.Rows))
	vals := make([]float64, 0, len(in.Rows))
	for _, row := range in.Rows {
		k := row.JoinKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		v, ok := row.Measure(metric)
		if !ok {
			continue
		}
		values[k] = v
		vals = append(vals, v)
	}
	scale := NewScale(vals, r.palette)

	m := &Map{
		Metric:      metric,
		Frame:       in.Frame,
		Tiles:       r.opts.Light,
		Dark:        in.Dark,
		FillOpacity: FillOpacity,
		LineOpacity: LineOpacity,
		Legend: Legend{
			Title:       in.Legend,
			Colors:      append([]string(nil), r.palette...),
			Edges:       scale.Edges,
			Labels:      scale.Labels(decimalsFor(metric)),
			NoDataColor: r.opts.NoDataColor,
		},
		Features: &geojson.FeatureCollection{Features: []*geojson.Feature{}},
	}
	if in.Dark {
		m.Tiles = r.opts.Dark
	}
	if m.Legend.Edges == nil {
		m.Legend.Edges = []float64{}
	}

	level := ""
	var codes map[string]struct{}
	if in.Geometry != nil {
		level = string(in.Geometry.Level)
		codes = make(map[string]struct{}, in.Geometry.Len())
		for _, f := range in.Geometry.Features {
			codes[f.Code] = struct{}{}
			props := map[string]interface{}{
				"code":  f.Code,
				"name":  f.Name,
				"value": nil,
				"fill":  r.opts.NoDataColor,
				"class": -1,
			}
			if v, ok := values[f.Code]; ok {
				props["value"] = v
				props["fill"] = scale.Color(v)
				props["class"] = scale.Class(v)
				m.Stats.Colored++
			} else {
				m.Stats.UnmatchedFeatures++
			}
			m.Features.Features = append(m.Features.Features, &geojson.Feature{
				ID:         f.Code,
				Geometry:   f.Geometry,
				Properties: props,
			})
		}
	}
	m.Stats.Features = len(m.Features.Features)
	m.Stats.Rows = len(seen)
	for k := range seen {
		if _, ok := codes[k]; !ok {
			m.Stats.UnmatchedRows++
		}
	}

	if m.Stats.UnmatchedFeatures > 0 || m.Stats.UnmatchedRows > 0 {
		metrics.JoinUnmatchedFeaturesTotal.WithLabelValues(level).Add(float64(m.Stats.UnmatchedFeatures))
		metrics.JoinUnmatchedRowsTotal.WithLabelValues(level).Add(float64(m.Stats.UnmatchedRows))
		logger.L().Debug("join_mismatch",
			"level", level,
			"legend", in.Legend,
			"unmatched_features", m.Stats.UnmatchedFeatures,
			"unmatched_rows", m.Stats.UnmatchedRows,
		)
	}
	if m.Stats.Colored == 0 {
		metrics.EmptyMapsTotal.Inc()
	}
	metrics.RenderDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return m, nil
}

func decimalsFor(m results.Metric) int {
	if m == results.MetricVoteShare {
		return 1
	}
	return 0
}
