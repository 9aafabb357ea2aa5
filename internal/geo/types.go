package geo

import (
	"github.com/twpayne/go-geom"
)

// Level：几何集合的行政层级
type Level string

const (
	LevelDepartment Level = "department"
	LevelCommune    Level = "commune"
)

// 文档注释：行政区要素的最小数据结构
// 背景：统一承载省/市镇两级的连接键、展示名与几何；加载时预计算包围盒、质心与面积，查询期只读。
// 约束：几何仅支持 GeoJSON 的 Polygon/MultiPolygon；面积与质心为经纬度平面量（平方度），仅用于取景分级。
type Feature struct {
	Code     string
	Name     string
	Geometry geom.T
	BBox     [4]float64 // minLon, minLat, maxLon, maxLat
	Center   Point
	Area     float64
}

// 点坐标（WGS84）
type Point struct {
	Lat float64
	Lon float64
}

// 文档注释：加载后的要素集合快照
// 约束：按 Code 建索引，重复代码首个胜出；质心 KD-Tree 用于 Locate 的最近邻兜底。
type Collection struct {
	Level    Level
	Features []Feature
	index    map[string]int
	kd       *kdNode
}

// NewCollection：由要素列表构建集合；返回被丢弃的重复代码数量
func NewCollection(level Level, features []Feature) (*Collection, int) {
	c := &Collection{Level: level, index: make(map[string]int, len(features))}
	dups := 0
	cents := make([]centroid, 0, len(features))
	for _, f := range features {
		if _, ok := c.index[f.Code]; ok {
			dups++
			continue
		}
		c.index[f.Code] = len(c.Features)
		cents = append(cents, centroid{Point: f.Center, idx: len(c.Features)})
		c.Features = append(c.Features, f)
	}
	c.kd = buildKD(cents, 0)
	return c, dups
}

// Lookup：按连接键查找要素
func (c *Collection) Lookup(code string) (Feature, bool) {
	if c == nil {
		return Feature{}, false
	}
	i, ok := c.index[code]
	if !ok {
		return Feature{}, false
	}
	return c.Features[i], true
}

func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// Frame：地图取景参数（中心点与缩放级别）
type Frame struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}
