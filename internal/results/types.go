package results

import (
	"encoding/json"
	"errors"
	"math"
)

// 文档注释：得票率（百分比）与缺失标记
// 背景：有效票为 0 时比例无定义；用 Valid=false 显式表达“无数据”，避免 NaN 流入色阶计算。
// 约束：Valid 为 true 时 Value 必为有限值；JSON 中缺失值序列化为 null。
type Share struct {
	Value float64
	Valid bool
}

// ShareOf：按 100*votes/cast 计算得票率；cast<=0 时返回缺失标记
func ShareOf(votes, cast int64) Share {
	if cast <= 0 {
		return Share{}
	}
	v := 100 * float64(votes) / float64(cast)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Share{}
	}
	return Share{Value: v, Valid: true}
}

func (s Share) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Metric：行上可取值的指标列名
type Metric string

const (
	MetricVoteShare Metric = "vote_share_pct"
	MetricVotes     Metric = "votes_for_candidate"
	MetricCast      Metric = "total_votes_cast"
)

var ErrUnknownCandidate = errors.New("unknown candidate")

// Measurable：可与几何要素按 area_code 连接并提供指标值的行
type Measurable interface {
	JoinKey() string
	Measure(m Metric) (float64, bool)
}

// 文档注释：单个市镇 × 候选人的结果行
// 约束：AreaCode = DepartmentCode + CommuneCode（字符串拼接，保留前导零）；Votes <= Cast。
type CommuneResult struct {
	DepartmentCode string `json:"department_code"`
	CommuneCode    string `json:"commune_code"`
	AreaCode       string `json:"area_code"`
	CommuneName    string `json:"commune_name,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
	CandidateID    int    `json:"candidate_id"`
	FirstName      string `json:"candidate_first_name"`
	LastName       string `json:"candidate_last_name"`
	Votes          int64  `json:"votes_for_candidate"`
	Cast           int64  `json:"total_votes_cast"`
	Share          Share  `json:"vote_share_pct"`
}

func (r CommuneResult) JoinKey() string { return r.AreaCode }

func (r CommuneResult) Measure(m Metric) (float64, bool) {
	return measure(m, r.Votes, r.Cast, r.Share)
}

// 文档注释：省级聚合行（省 × 候选人）
// 约束：AreaCode 复用省代码作为与省级几何的连接键；Share 由求和后的票数重新推导，而非市镇比例的平均。
type DepartmentAggregate struct {
	AreaCode    string `json:"area_code"`
	CandidateID int    `json:"candidate_id"`
	FirstName   string `json:"candidate_first_name"`
	LastName    string `json:"candidate_last_name"`
	Votes       int64  `json:"votes_for_candidate"`
	Cast        int64  `json:"total_votes_cast"`
	Share       Share  `json:"vote_share_pct"`
}

func (a DepartmentAggregate) JoinKey() string { return a.AreaCode }

func (a DepartmentAggregate) Measure(m Metric) (float64, bool) {
	return measure(m, a.Votes, a.Cast, a.Share)
}

func measure(m Metric, votes, cast int64, share Share) (float64, bool) {
	switch m {
	case MetricVoteShare:
		return share.Value, share.Valid
	case MetricVotes:
		return float64(votes), true
	case MetricCast:
		return float64(cast), true
	}
	return 0, false
}

// KnownMetric：判定指标名是否受支持
func KnownMetric(m Metric) bool {
	switch m {
	case MetricVoteShare, MetricVotes, MetricCast:
		return true
	}
	return false
}
