package render

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorBrewer BuPu 9 级锚点（由浅到深）
var bupu = []string{
	"#f7fcfd", "#e0ecf4", "#bfd3e6", "#9ebcda", "#8c96c6",
	"#8c6bb1", "#88419d", "#810f7c", "#4d004b",
}

const (
	MinBins     = 3
	MaxBins     = 9
	DefaultBins = 6
)

// 文档注释：生成 n 级 BuPu 顺序色板
// 背景：在 CIE-Lab 空间对锚点做分段插值，任意级数下相邻色差近似均匀；首尾分别为最浅与最深锚点。
// 约束：n 取值 [MinBins, MaxBins]；返回 #rrggbb 小写十六进制。
func Palette(n int) ([]string, error) {
	if n < MinBins || n > MaxBins {
		return nil, fmt.Errorf("palette: bins %d out of range [%d,%d]", n, MinBins, MaxBins)
	}
	anchors := make([]colorful.Color, len(bupu))
	for i, h := range bupu {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, err
		}
		anchors[i] = c
	}
	out := make([]string, n)
	segs := float64(len(anchors) - 1)
	for i := 0; i < n; i++ {
		pos := float64(i) / float64(n-1) * segs
		k := int(pos)
		if k >= len(anchors)-1 {
			out[i] = anchors[len(anchors)-1].Hex()
			continue
		}
		out[i] = anchors[k].BlendLab(anchors[k+1], pos-float64(k)).Clamped().Hex()
	}
	return out, nil
}

// 校验并规范化颜色：接受 #rgb 或 #rrggbb，输出 #rrggbb
func normalizeColor(s string) (string, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return "", fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return c.Hex(), nil
}
