package selection

import (
	"errors"
	"fmt"
	"strings"

	"vote-map/internal/dataload"
	"vote-map/internal/geo"
	"vote-map/internal/logger"
	"vote-map/internal/results"
)

// Granularity：地图展示粒度
type Granularity string

const (
	Department Granularity = "department"
	Commune    Granularity = "commune"
)

var ErrUnknownGranularity = errors.New("unknown granularity")

// ParseGranularity：解析粒度参数（兼容法语写法与缩写），大小写不敏感
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "department", "departement", "département", "dep":
		return Department, nil
	case "commune", "communes":
		return Commune, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
}

// Request：一次交互的选择
type Request struct {
	CandidateID int
	Granularity Granularity
	Department  string // 空表示全国
}

// 文档注释：选择结果视图（一次交互的临时产物）
// 约束：Rows 仅含所选候选人的行；Geometry 与粒度对应；Legend 为候选人展示名。
type View struct {
	Granularity Granularity
	Rows        []results.Measurable
	Geometry    *geo.Collection
	Frame       geo.Frame
	Legend      string
	Candidate   results.Candidate
}

// 文档注释：选择解析器
// 背景：省/市镇结果在初始化时按候选人建索引，交互期只做过滤与取景，不做聚合。
// 约束：构建后只读，可被并发请求共享。
type Resolver struct {
	dir         *results.Directory
	departments *geo.Collection
	communes    *geo.Collection
	depRows     map[int][]results.DepartmentAggregate
	comRows     map[int][]results.CommuneResult
}

func NewResolver(dir *results.Directory, aggs []results.DepartmentAggregate, rows []results.CommuneResult, departments, communes *geo.Collection) *Resolver {
	r := &Resolver{
		dir:         dir,
		departments: departments,
		communes:    communes,
		depRows:     make(map[int][]results.DepartmentAggregate),
		comRows:     make(map[int][]results.CommuneResult),
	}
	for _, a := range aggs {
		r.depRows[a.CandidateID] = append(r.depRows[a.CandidateID], a)
	}
	for _, c := range rows {
		r.comRows[c.CandidateID] = append(r.comRows[c.CandidateID], c)
	}
	return r
}

// 文档注释：按交互选择生成视图
// 背景：省级粒度展示全国省聚合，省过滤无效；市镇粒度可选按省过滤并以该省几何取景。
// 约束：未知候选人 → results.ErrUnknownCandidate；未知粒度 → ErrUnknownGranularity；无匹配行返回空视图而非错误。
func (r *Resolver) Resolve(req Request) (View, error) {
	cand, err := r.dir.Lookup(req.CandidateID)
	if err != nil {
		return View{}, err
	}
	v := View{
		Granularity: req.Granularity,
		Frame:       geo.DefaultFrame,
		Legend:      cand.DisplayName(),
		Candidate:   cand,
	}
	switch req.Granularity {
	case Department:
		v.Geometry = r.departments
		src := r.depRows[req.CandidateID]
		v.Rows = make([]results.Measurable, 0, len(src))
		for _, a := range src {
			v.Rows = append(v.Rows, a)
		}
	case Commune:
		v.Geometry = r.communes
		dep := dataload.NormalizeCode(req.Department)
		src := r.comRows[req.CandidateID]
		v.Rows = make([]results.Measurable, 0, len(src))
		for _, c := range src {
			if dep != "" && c.DepartmentCode != dep {
				continue
			}
			v.Rows = append(v.Rows, c)
		}
		if dep != "" {
			v.Frame = r.frameFor(dep)
		}
	default:
		return View{}, fmt.Errorf("%w: %q", ErrUnknownGranularity, req.Granularity)
	}
	return v, nil
}

func (r *Resolver) frameFor(dep string) geo.Frame {
	if r.departments == nil {
		return geo.DefaultFrame
	}
	f, ok := r.departments.Lookup(dep)
	if !ok {
		logger.L().Warn("department_geometry_missing", "department", dep)
		return geo.DefaultFrame
	}
	return geo.FrameFor(f)
}
