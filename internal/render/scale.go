package render

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// 文档注释：等宽分级色阶
// 背景：分级边界取当前子集有效值的最小/最大值（而非固定 0 到 100），使单个省份内的差异也能被看见。
// 约束：Edges 长度为 len(Colors)+1；Min==Max 时所有有效值归入最深一级；无有效值时 Empty 为 true。
type Scale struct {
	Min    float64
	Max    float64
	Edges  []float64
	Colors []string
	Empty  bool
}

func NewScale(values []float64, colors []string) Scale {
	s := Scale{Colors: colors}
	first := true
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if first {
			s.Min, s.Max = v, v
			first = false
			continue
		}
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	if first {
		s.Empty = true
		return s
	}
	n := len(colors)
	s.Edges = make([]float64, n+1)
	step := (s.Max - s.Min) / float64(n)
	for i := 0; i <= n; i++ {
		s.Edges[i] = s.Min + step*float64(i)
	}
	s.Edges[n] = s.Max
	return s
}

// Class：返回值所在的分级下标（右端点并入最后一级）
func (s Scale) Class(v float64) int {
	n := len(s.Colors)
	if s.Empty || n == 0 {
		return -1
	}
	if s.Max == s.Min {
		return n - 1
	}
	i := int((v - s.Min) * float64(n) / (s.Max - s.Min))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

// Color：返回值对应的填充色
func (s Scale) Color(v float64) string {
	i := s.Class(v)
	if i < 0 {
		return ""
	}
	return s.Colors[i]
}

var frenchPrinter = message.NewPrinter(language.French)

// 图例刻度（法语数字格式：小数逗号、千位空格）
func (s Scale) Labels(decimals int) []string {
	out := make([]string, len(s.Edges))
	for i, e := range s.Edges {
		out[i] = formatNumber(e, decimals)
	}
	return out
}

func formatNumber(v float64, decimals int) string {
	return frenchPrinter.Sprint(number.Decimal(v, number.Scale(decimals)))
}
