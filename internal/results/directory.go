package results

import (
	"fmt"
	"sort"
)

// Candidate：候选人（以投票板编号为稳定标识）
type Candidate struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// DisplayName：展示名，“名 姓”
func (c Candidate) DisplayName() string {
	return c.FirstName + " " + c.LastName
}

// 名称冲突：同一编号在源表中出现不同姓名
type NameConflict struct {
	ID      int
	Kept    Candidate
	Ignored Candidate
}

// 文档注释：候选人目录
// 背景：源表每个市镇重复一次候选人信息；目录按编号去重，得到编号 → 唯一姓名的映射。
// 约束：同一编号出现多个姓名时首次出现者胜出，其余记为冲突返回给调用方记录；查找不存在的编号返回 ErrUnknownCandidate。
type Directory struct {
	byID map[int]Candidate
	ids  []int
}

func NewDirectory(rows []CommuneResult) (*Directory, []NameConflict) {
	d := &Directory{byID: make(map[int]Candidate)}
	var conflicts []NameConflict
	reported := make(map[Candidate]struct{})
	for _, r := range rows {
		c := Candidate{ID: r.CandidateID, FirstName: r.FirstName, LastName: r.LastName}
		kept, ok := d.byID[r.CandidateID]
		if !ok {
			d.byID[r.CandidateID] = c
			d.ids = append(d.ids, r.CandidateID)
			continue
		}
		if kept != c {
			if _, dup := reported[c]; !dup {
				reported[c] = struct{}{}
				conflicts = append(conflicts, NameConflict{ID: r.CandidateID, Kept: kept, Ignored: c})
			}
		}
	}
	sort.Ints(d.ids)
	return d, conflicts
}

// Lookup：按编号查找候选人
func (d *Directory) Lookup(id int) (Candidate, error) {
	c, ok := d.byID[id]
	if !ok {
		return Candidate{}, fmt.Errorf("%w: %d", ErrUnknownCandidate, id)
	}
	return c, nil
}

// Name：按编号返回展示名
func (d *Directory) Name(id int) (string, error) {
	c, err := d.Lookup(id)
	if err != nil {
		return "", err
	}
	return c.DisplayName(), nil
}

// Candidates：按编号升序返回全部候选人
func (d *Directory) Candidates() []Candidate {
	out := make([]Candidate, 0, len(d.ids))
	for _, id := range d.ids {
		out = append(out, d.byID[id])
	}
	return out
}

func (d *Directory) Len() int { return len(d.ids) }
