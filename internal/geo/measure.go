package geo

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// 默认取景：法国本土全景
var DefaultFrame = Frame{Lat: 46.5, Lon: 2.3, Zoom: 5}

// 文档注释：省级取景的两档缩放
// 背景：小面积省份需要更近的缩放；阈值为经验值（平方度），两档划分保持不变。
const (
	SmallAreaThreshold = 0.5
	ZoomSmallArea      = 9
	ZoomLargeArea      = 8
)

// FrameFor：以要素质心为中心，按面积选择缩放档位
func FrameFor(f Feature) Frame {
	zoom := ZoomLargeArea
	if f.Area < SmallAreaThreshold {
		zoom = ZoomSmallArea
	}
	return Frame{Lat: f.Center.Lat, Lon: f.Center.Lon, Zoom: zoom}
}

func area(t geom.T) float64 {
	switch g := t.(type) {
	case *geom.Polygon:
		return g.Area()
	case *geom.MultiPolygon:
		return g.Area()
	}
	return 0
}

// 面积加权质心；多面取各部分的加权
func centroidOf(t geom.T) (Point, error) {
	c, err := xy.Centroid(t)
	if err != nil {
		return Point{}, err
	}
	if len(c) < 2 {
		return Point{}, fmt.Errorf("centroid: unexpected coord %v", c)
	}
	return Point{Lat: c[1], Lon: c[0]}, nil
}
