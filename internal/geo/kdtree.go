package geo

import "math"

// 质心表项：要素下标 + 质心坐标
type centroid struct {
	Point
	idx int
}

// 文档注释：KD-Tree 最近邻（二维经纬）
// 背景：点击位置落在海上或边界缝隙时 PIP 无命中，用最近质心兜底；限制最大半径避免远海误归属。
// 约束：按经度/纬度交替分割；仅支持最近一个点查询。
type kdNode struct {
	c  centroid
	ax int // 0:lon,1:lat
	l  *kdNode
	r  *kdNode
}

func buildKD(cs []centroid, depth int) *kdNode {
	if len(cs) == 0 {
		return nil
	}
	ax := depth % 2
	mid := len(cs) / 2
	selectNth(cs, mid, ax)
	node := &kdNode{c: cs[mid], ax: ax}
	node.l = buildKD(cs[:mid], depth+1)
	node.r = buildKD(cs[mid+1:], depth+1)
	return node
}

// 原地 nth 元素选择（轴为经度/纬度）
func selectNth(a []centroid, n int, ax int) {
	lo, hi := 0, len(a)-1
	for lo < hi {
		p := partition(a, lo, hi, (lo+hi)/2, ax)
		if p == n {
			return
		}
		if n < p {
			hi = p - 1
		} else {
			lo = p + 1
		}
	}
}

func partition(a []centroid, lo, hi, pivot, ax int) int {
	pv := a[pivot]
	a[pivot], a[hi] = a[hi], a[pivot]
	i := lo
	for j := lo; j < hi; j++ {
		if lessCent(a[j], pv, ax) {
			a[i], a[j] = a[j], a[i]
			i++
		}
	}
	a[i], a[hi] = a[hi], a[i]
	return i
}

func lessCent(x, y centroid, ax int) bool {
	if ax == 0 {
		return x.Lon < y.Lon
	}
	return x.Lat < y.Lat
}

// 最近邻查询，返回质心与距离（千米）；空树返回 ok=false
func nearest(node *kdNode, pt Point) (centroid, float64, bool) {
	if node == nil {
		return centroid{}, 0, false
	}
	best := centroid{}
	bestD := math.MaxFloat64
	var dfs func(n *kdNode)
	dfs = func(n *kdNode) {
		if n == nil {
			return
		}
		d := haversine(pt.Lat, pt.Lon, n.c.Lat, n.c.Lon)
		if d < bestD {
			bestD = d
			best = n.c
		}
		var key, q float64
		if n.ax == 0 {
			key, q = pt.Lon, n.c.Lon
		} else {
			key, q = pt.Lat, n.c.Lat
		}
		first, second := n.l, n.r
		if key > q {
			first, second = n.r, n.l
		}
		dfs(first)
		// 查询点到分割平面的球面距离小于当前最优时才遍历另一侧
		if planeDist(pt, n.ax, q) < bestD {
			dfs(second)
		}
	}
	dfs(node)
	return best, bestD, true
}

// 点到分割线（经线或纬线）的球面距离下界（千米）
func planeDist(pt Point, ax int, q float64) float64 {
	const R = 6371.0
	if ax == 1 {
		return R * math.Abs(pt.Lat-q) * math.Pi / 180
	}
	dLon := math.Abs(pt.Lon-q) * math.Pi / 180
	if dLon >= math.Pi/2 {
		return 0
	}
	return R * math.Asin(math.Cos(pt.Lat*math.Pi/180)*math.Sin(dLon))
}

// 球面距离（Haversine），返回千米
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
