package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"vote-map/internal/dataload"
	"vote-map/internal/logger"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

type rawCollection struct {
	Type     string       `json:"type"`
	Features []rawFeature `json:"features"`
}

type rawFeature struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// LoadStats：加载过程中被跳过的要素计数
type LoadStats struct {
	Total       int
	NoCode      int
	BadGeometry int
	Duplicates  int
}

// 文档注释：从 GeoJSON 文件加载要素集合
// 背景：省级与市镇级边界均以 FeatureCollection 分发，properties.code 为连接键，properties.nom 为展示名。
// 约束：文件缺失/非法 JSON/非 FeatureCollection/无可用要素 → dataload.Error；缺 code 或几何非面状的要素跳过并计数。
func LoadCollection(path string, level Level) (*Collection, error) {
	rc, err := dataload.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	c, st, err := ReadCollection(rc, level)
	if err != nil {
		return nil, dataload.Wrap(path, "parse", err)
	}
	logger.L().Debug("geo_load_stats",
		"path", path,
		"level", string(level),
		"total", st.Total,
		"no_code", st.NoCode,
		"bad_geometry", st.BadGeometry,
		"duplicates", st.Duplicates,
	)
	return c, nil
}

// ReadCollection：从 reader 解析 FeatureCollection
func ReadCollection(r io.Reader, level Level) (*Collection, LoadStats, error) {
	var st LoadStats
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw rawCollection
	if err := dec.Decode(&raw); err != nil {
		return nil, st, err
	}
	if !strings.EqualFold(raw.Type, "FeatureCollection") {
		return nil, st, fmt.Errorf("%w: type %q", dataload.ErrNotFeatureCollection, raw.Type)
	}
	st.Total = len(raw.Features)
	features := make([]Feature, 0, len(raw.Features))
	for _, rf := range raw.Features {
		code := dataload.NormalizeCode(propString(rf.Properties, "code"))
		if code == "" {
			st.NoCode++
			continue
		}
		f, ok := buildFeature(rf.Geometry)
		if !ok {
			st.BadGeometry++
			continue
		}
		f.Code = code
		f.Name = propString(rf.Properties, "nom")
		if f.Name == "" {
			f.Name = propString(rf.Properties, "name")
		}
		features = append(features, f)
	}
	if len(features) == 0 {
		return nil, st, dataload.ErrNoFeatures
	}
	c, dups := NewCollection(level, features)
	st.Duplicates = dups
	return c, st, nil
}

func buildFeature(g json.RawMessage) (Feature, bool) {
	var f Feature
	if len(g) == 0 || bytes.Equal(bytes.TrimSpace(g), []byte("null")) {
		return f, false
	}
	var t geom.T
	if err := geojson.Unmarshal(g, &t); err != nil {
		return f, false
	}
	switch t.(type) {
	case *geom.Polygon, *geom.MultiPolygon:
	default:
		return f, false
	}
	if len(t.FlatCoords()) == 0 {
		return f, false
	}
	f.Geometry = t
	f.BBox = computeBBox(t)
	f.Area = area(t)
	c, err := centroidOf(t)
	if err != nil {
		return f, false
	}
	f.Center = c
	return f, true
}

// 代码字段可能被写成数字；UseNumber 保留其原始文本
func propString(m map[string]any, k string) string {
	switch v := m[k].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func computeBBox(t geom.T) [4]float64 {
	b := t.Bounds()
	return [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
}
