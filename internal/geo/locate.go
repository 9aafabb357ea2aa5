package geo

// Hit：定位结果；Approx 表示非 PIP 精确命中（最近质心兜底）
type Hit struct {
	Feature    Feature
	Approx     bool
	DistanceKm float64
}

// 文档注释：按坐标定位所属要素（包围盒候选 → PIP 命中 → 最近质心兜底）
// 背景：地图点击只给出经纬度，需要反查所在的省/市镇以便切换取景。
// 约束：maxRadiusKm<=0 时关闭兜底；兜底命中的 DistanceKm 为到质心的球面距离。
func (c *Collection) Locate(lat, lon, maxRadiusKm float64) (Hit, bool) {
	if c == nil {
		return Hit{}, false
	}
	pt := Point{Lat: lat, Lon: lon}
	for i := range c.Features {
		f := &c.Features[i]
		if !inBBox(pt, f.BBox) {
			continue
		}
		if containsPoint(f.Geometry, pt) {
			return Hit{Feature: *f}, true
		}
	}
	if maxRadiusKm <= 0 {
		return Hit{}, false
	}
	cent, d, ok := nearest(c.kd, pt)
	if !ok || d > maxRadiusKm {
		return Hit{}, false
	}
	return Hit{Feature: c.Features[cent.idx], Approx: true, DistanceKm: d}, true
}
