package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"vote-map/internal/atlas"
	"vote-map/internal/dataload"
	"vote-map/internal/geo"
	"vote-map/internal/logger"
	"vote-map/internal/metrics"
	"vote-map/internal/render"
	"vote-map/internal/results"
	"vote-map/internal/selection"
	"vote-map/internal/version"

	"github.com/go-chi/chi/v5"
)

// Options：路由层参数
type Options struct {
	// 定位兜底的最近质心最大距离（千米）；0 表示仅精确命中
	LocateRadiusKm float64
}

type handler struct {
	a     *atlas.Atlas
	cache *MapCache
	opts  Options
}

// 文档注释：构建 API 路由（挂载到 API_BASE 前缀下）
// 背景：仪表盘前端通过这些端点获取候选人/省列表、地图产物与点击定位；数据集只读共享，处理函数无锁。
// 约束：参数错误 400；未知候选人 404；无数据的选择返回空地图而非 5xx。
func BuildRoutes(a *atlas.Atlas, cache *MapCache, opts Options) http.Handler {
	h := &handler{a: a, cache: cache, opts: opts}
	r := chi.NewRouter()
	r.Get("/healthz", h.health)
	r.Get("/candidates", h.candidates)
	r.Get("/departments", h.departments)
	r.Get("/map", h.mapJSON)
	r.Get("/map.html", h.mapHTML)
	r.Get("/locate", h.locate)
	r.Handle("/metrics", metrics.Handler())
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string, err error) {
	metrics.MapRequestErrorsTotal.WithLabelValues(reason).Inc()
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, health{
		Status:      "ok",
		Commit:      version.Commit,
		Candidates:  h.a.Directory.Len(),
		Communes:    h.a.Communes.Len(),
		Departments: h.a.Departments.Len(),
	})
}

func (h *handler) candidates(w http.ResponseWriter, r *http.Request) {
	cs := h.a.Candidates()
	out := make([]candidateItem, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateItem{ID: c.ID, Name: c.DisplayName(), FirstName: c.FirstName, LastName: c.LastName})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) departments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.a.DepartmentList())
}

// mapQuery：/map 与 /map.html 共用的查询参数
type mapQuery struct {
	req    selection.Request
	metric results.Metric
	dark   bool
}

var errBadParam = errors.New("bad parameter")

func parseMapQuery(r *http.Request) (mapQuery, error) {
	q := r.URL.Query()
	var mq mapQuery
	cs := strings.TrimSpace(q.Get("candidate"))
	if cs == "" {
		return mq, fmt.Errorf("%w: candidate is required", errBadParam)
	}
	id, err := strconv.Atoi(cs)
	if err != nil {
		return mq, fmt.Errorf("%w: candidate %q", errBadParam, cs)
	}
	level := q.Get("level")
	if level == "" {
		level = string(selection.Department)
	}
	g, err := selection.ParseGranularity(level)
	if err != nil {
		return mq, err
	}
	switch strings.ToLower(q.Get("theme")) {
	case "", "light":
	case "dark":
		mq.dark = true
	default:
		return mq, fmt.Errorf("%w: theme %q", errBadParam, q.Get("theme"))
	}
	mq.metric = results.MetricVoteShare
	if m := q.Get("metric"); m != "" {
		mq.metric = results.Metric(m)
		if !results.KnownMetric(mq.metric) {
			return mq, fmt.Errorf("%w: %q", render.ErrUnknownMetric, m)
		}
	}
	mq.req = selection.Request{CandidateID: id, Granularity: g}
	if g == selection.Commune {
		mq.req.Department = q.Get("department")
	}
	return mq, nil
}

func (mq mapQuery) key() mapKey {
	return mapKey{
		Candidate:  mq.req.CandidateID,
		Level:      string(mq.req.Granularity),
		Department: dataload.NormalizeCode(mq.req.Department),
		Metric:     string(mq.metric),
		Dark:       mq.dark,
	}
}

// 渲染或命中缓存；返回序列化后的产物与图例标题
func (h *handler) artifact(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	mq, err := parseMapQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return nil, "", false
	}
	metrics.MapRequestsTotal.WithLabelValues(string(mq.req.Granularity)).Inc()
	title, err := h.a.Directory.Name(mq.req.CandidateID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_candidate", err)
		return nil, "", false
	}
	k := mq.key()
	if b, ok := h.cache.Get(r.Context(), k); ok {
		return b, title, true
	}
	m, err := h.a.MapMetric(mq.req, mq.metric, mq.dark)
	switch {
	case errors.Is(err, results.ErrUnknownCandidate):
		writeError(w, http.StatusNotFound, "unknown_candidate", err)
		return nil, "", false
	case errors.Is(err, render.ErrUnknownMetric), errors.Is(err, selection.ErrUnknownGranularity):
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return nil, "", false
	case err != nil:
		logger.L().Error("map_render_error", "err", err, "request_id", logger.RequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "internal", err)
		return nil, "", false
	}
	b, err := json.Marshal(m)
	if err != nil {
		logger.L().Error("map_encode_error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", err)
		return nil, "", false
	}
	h.cache.Set(r.Context(), k, b)
	logger.L().Debug("map_render_ok",
		"candidate", mq.req.CandidateID,
		"level", string(mq.req.Granularity),
		"department", mq.req.Department,
		"colored", m.Stats.Colored,
		"features", m.Stats.Features,
	)
	return b, title, true
}

func (h *handler) mapJSON(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.artifact(w, r)
	if !ok {
		return
	}
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *handler) mapHTML(w http.ResponseWriter, r *http.Request) {
	b, title, ok := h.artifact(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := render.WritePage(&buf, title, b); err != nil {
		logger.L().Error("map_page_error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) locate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil || math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: lat/lon", errBadParam))
		return
	}
	level := geo.LevelDepartment
	if s := q.Get("level"); s != "" {
		g, err := selection.ParseGranularity(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		if g == selection.Commune {
			level = geo.LevelCommune
		}
	}
	hit, ok := h.a.Collection(level).Locate(lat, lon, h.opts.LocateRadiusKm)
	if !ok {
		metrics.LocateTotal.WithLabelValues("miss").Inc()
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no area at this position"})
		return
	}
	outcome := "exact"
	if hit.Approx {
		outcome = "approx"
	}
	metrics.LocateTotal.WithLabelValues(outcome).Inc()
	logger.L().Debug("locate_ok", "lat", lat, "lon", lon, "code", hit.Feature.Code, "approx", hit.Approx)
	writeJSON(w, http.StatusOK, locateResult{
		Code:       hit.Feature.Code,
		Name:       hit.Feature.Name,
		Level:      string(level),
		Approx:     hit.Approx,
		DistanceKm: hit.DistanceKm,
	})
}
