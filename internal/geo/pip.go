package geo

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// 文档注释：点入多边形判定（射线法，支持洞与多面）
// 约束：输入为经纬度坐标（WGS84）；边界上的点视为命中外环。
func containsPoint(t geom.T, pt Point) bool {
	switch g := t.(type) {
	case *geom.Polygon:
		return polygonContains(g, pt)
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if polygonContains(g.Polygon(i), pt) {
				return true
			}
		}
	}
	return false
}

// 外环命中且不在洞内视为命中
func polygonContains(p *geom.Polygon, pt Point) bool {
	n := p.NumLinearRings()
	if n == 0 {
		return false
	}
	c := geom.Coord{pt.Lon, pt.Lat}
	if !xy.IsPointInRing(p.Layout(), c, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < n; i++ {
		if xy.IsPointInRing(p.Layout(), c, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

// 快速包围盒过滤
func inBBox(pt Point, b [4]float64) bool {
	return pt.Lon >= b[0] && pt.Lon <= b[2] && pt.Lat >= b[1] && pt.Lat <= b[3]
}
