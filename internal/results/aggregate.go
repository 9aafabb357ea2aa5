package results

import "sort"

type groupKey struct {
	dep   string
	id    int
	first string
	last  string
}

// 文档注释：市镇 → 省聚合
// 背景：按（省代码, 候选人编号, 名, 姓）分组，累加候选人得票与有效票，再由总数重新推导得票率。
// 约束：纯函数，无 I/O；输出按 (AreaCode, CandidateID, LastName, FirstName) 排序以保证确定性，调用方不得依赖顺序。
func Aggregate(rows []CommuneResult) []DepartmentAggregate {
	idx := make(map[groupKey]int)
	var out []DepartmentAggregate
	for _, r := range rows {
		k := groupKey{dep: r.DepartmentCode, id: r.CandidateID, first: r.FirstName, last: r.LastName}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, DepartmentAggregate{
				AreaCode:    r.DepartmentCode,
				CandidateID: r.CandidateID,
				FirstName:   r.FirstName,
				LastName:    r.LastName,
			})
		}
		out[i].Votes += r.Votes
		out[i].Cast += r.Cast
	}
	for i := range out {
		out[i].Share = ShareOf(out[i].Votes, out[i].Cast)
	}
	sort.Slice(out, func(a, b int) bool {
		x, y := out[a], out[b]
		if x.AreaCode != y.AreaCode {
			return x.AreaCode < y.AreaCode
		}
		if x.CandidateID != y.CandidateID {
			return x.CandidateID < y.CandidateID
		}
		if x.LastName != y.LastName {
			return x.LastName < y.LastName
		}
		return x.FirstName < y.FirstName
	})
	return out
}

// DepartmentCodes：结果表中出现的省代码（去重、升序），用于省选择器
func DepartmentCodes(rows []CommuneResult) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, r := range rows {
		if _, ok := seen[r.DepartmentCode]; ok {
			continue
		}
		seen[r.DepartmentCode] = struct{}{}
		codes = append(codes, r.DepartmentCode)
	}
	sort.Strings(codes)
	return codes
}
