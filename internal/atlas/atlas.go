package atlas

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vote-map/internal/geo"
	"vote-map/internal/logger"
	"vote-map/internal/render"
	"vote-map/internal/results"
	"vote-map/internal/selection"

	"golang.org/x/sync/errgroup"
)

// Sources：初始化所需的输入文件与选项
type Sources struct {
	ResultsPath    string
	CommunePath    string
	DepartmentPath string
	Load           results.LoadOptions
	Render         render.Options
}

// DepartmentInfo：省选择器条目
type DepartmentInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// 文档注释：一次性加载的只读数据集
// 背景：结果表、两级几何、省聚合与候选人目录在启动时构建一次，之后所有请求共享，不再修改。
// 约束：字段在 Load 返回后只读；并发读取无需加锁。
type Atlas struct {
	Rows        []results.CommuneResult
	Aggregates  []results.DepartmentAggregate
	Directory   *results.Directory
	Departments *geo.Collection
	Communes    *geo.Collection

	depList  []DepartmentInfo
	resolver *selection.Resolver
	renderer *render.Renderer
}

// 文档注释：加载全部输入并构建数据集
// 背景：三个输入文件互不依赖，用 errgroup 并发读取；完成后在当前协程执行聚合与目录构建。
// 约束：任一文件失败即返回（错误中带文件路径）；ctx 取消时未开始的加载不再执行。
func Load(ctx context.Context, src Sources, l *slog.Logger) (*Atlas, error) {
	if l == nil {
		l = logger.L()
	}
	renderer, err := render.NewRenderer(src.Render)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	start := time.Now()
	a := &Atlas{renderer: renderer}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		rows, err := results.LoadCommuneResults(src.ResultsPath, src.Load)
		if err != nil {
			return err
		}
		a.Rows = rows
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		c, err := geo.LoadCollection(src.CommunePath, geo.LevelCommune)
		if err != nil {
			return err
		}
		a.Communes = c
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		c, err := geo.LoadCollection(src.DepartmentPath, geo.LevelDepartment)
		if err != nil {
			return err
		}
		a.Departments = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.build(l)
	l.Info("atlas_load_ok",
		"rows", len(a.Rows),
		"aggregates", len(a.Aggregates),
		"candidates", a.Directory.Len(),
		"communes", a.Communes.Len(),
		"departments", a.Departments.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}

// New：由已加载的结果行与几何集合构建数据集（不读文件）
func New(rows []results.CommuneResult, communes, departments *geo.Collection, opts render.Options, l *slog.Logger) (*Atlas, error) {
	if l == nil {
		l = logger.L()
	}
	renderer, err := render.NewRenderer(opts)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	a := &Atlas{Rows: rows, Communes: communes, Departments: departments, renderer: renderer}
	a.build(l)
	return a, nil
}

// 聚合、目录与解析器；冲突姓名逐条告警
func (a *Atlas) build(l *slog.Logger) {
	a.Aggregates = results.Aggregate(a.Rows)
	dir, conflicts := results.NewDirectory(a.Rows)
	for _, c := range conflicts {
		l.Warn("candidate_name_conflict",
			"id", c.ID,
			"kept", c.Kept.DisplayName(),
			"ignored", c.Ignored.DisplayName(),
		)
	}
	a.Directory = dir
	a.depList = departmentList(a.Rows, a.Departments)
	a.resolver = selection.NewResolver(dir, a.Aggregates, a.Rows, a.Departments, a.Communes)
}

// 省名优先取几何的 nom，其次取结果表的 dep_name，最后退化为代码
func departmentList(rows []results.CommuneResult, deps *geo.Collection) []DepartmentInfo {
	names := make(map[string]string)
	for _, r := range rows {
		if names[r.DepartmentCode] == "" {
			names[r.DepartmentCode] = r.DepartmentName
		}
	}
	codes := results.DepartmentCodes(rows)
	out := make([]DepartmentInfo, 0, len(codes))
	for _, code := range codes {
		name := names[code]
		if f, ok := deps.Lookup(code); ok && f.Name != "" {
			name = f.Name
		}
		if name == "" {
			name = code
		}
		out = append(out, DepartmentInfo{Code: code, Name: name})
	}
	return out
}

// Candidates：候选人列表（按投票板编号）
func (a *Atlas) Candidates() []results.Candidate { return a.Directory.Candidates() }

// DepartmentList：省选择器列表（按代码）
func (a *Atlas) DepartmentList() []DepartmentInfo { return a.depList }

// Map：按得票率渲染一次选择
func (a *Atlas) Map(req selection.Request, dark bool) (*render.Map, error) {
	return a.MapMetric(req, results.MetricVoteShare, dark)
}

// MapMetric：按指定指标渲染一次选择
func (a *Atlas) MapMetric(req selection.Request, metric results.Metric, dark bool) (*render.Map, error) {
	v, err := a.resolver.Resolve(req)
	if err != nil {
		return nil, err
	}
	return a.renderer.Render(render.Input{
		Rows:     v.Rows,
		Geometry: v.Geometry,
		Metric:   metric,
		Legend:   v.Legend,
		Frame:    v.Frame,
		Dark:     dark,
	})
}

// Collection：按层级返回几何集合
func (a *Atlas) Collection(level geo.Level) *geo.Collection {
	if level == geo.LevelCommune {
		return a.Communes
	}
	return a.Departments
}
