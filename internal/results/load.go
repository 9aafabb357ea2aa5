package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"vote-map/internal/dataload"
	"vote-map/internal/logger"

	"golang.org/x/text/unicode/norm"
)

// 必需列：缺任何一列即视为加载失败
var requiredColumns = []string{
	"dep_code", "commune_code", "cand_num_panneau",
	"cand_nom", "cand_prenom", "cand_nb_voix", "exprimes_nb",
}

// LoadOptions：结果表读取参数
type LoadOptions struct {
	// 以该前缀开头的省代码（海外/特殊编码）被静默丢弃
	ExcludedPrefix string
	Delimiter      rune
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{ExcludedPrefix: "Z", Delimiter: ','}
}

// 文档注释：读取市镇级结果表
// 背景：表按“市镇 × 候选人”一行分发（可 gzip 压缩）；area_code 由省代码与市镇代码字符串拼接，前导零必须保留。
// 约束：缺文件/缺列/数值非法/票数大于有效票 → dataload.Error；排除前缀的行静默丢弃，只计数。
func LoadCommuneResults(path string, opts LoadOptions) ([]CommuneResult, error) {
	rc, err := dataload.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	rows, excluded, err := ReadCommuneResults(rc, opts)
	if err != nil {
		return nil, dataload.Wrap(path, "parse", err)
	}
	logger.L().Debug("results_excluded_rows", "path", path, "excluded", excluded, "prefix", opts.ExcludedPrefix)
	return rows, nil
}

// ReadCommuneResults：从任意 reader 解析结果表，返回保留行与被排除行数
func ReadCommuneResults(r io.Reader, opts LoadOptions) ([]CommuneResult, int, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%w: empty table", dataload.ErrMissingColumn)
	}
	if err != nil {
		return nil, 0, err
	}
	col := map[string]int{}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		col[strings.TrimSpace(h)] = i
	}
	for _, k := range requiredColumns {
		if _, ok := col[k]; !ok {
			return nil, 0, fmt.Errorf("%w: %s", dataload.ErrMissingColumn, k)
		}
	}
	optional := func(name string) int {
		if i, ok := col[name]; ok {
			return i
		}
		return -1
	}
	shareIdx := optional("cand_rapport_exprim")
	communeNameIdx := optional("commune_name")
	depNameIdx := optional("dep_name")

	var out []CommuneResult
	excluded := 0
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w: %v", line, dataload.ErrMalformedRow, err)
		}
		get := func(i int) string {
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		dep := dataload.NormalizeCode(get(col["dep_code"]))
		if opts.ExcludedPrefix != "" && strings.HasPrefix(dep, opts.ExcludedPrefix) {
			excluded++
			continue
		}
		com := dataload.NormalizeCode(get(col["commune_code"]))
		if dep == "" || com == "" {
			return nil, 0, fmt.Errorf("row %d: %w: empty dep_code or commune_code", line, dataload.ErrMalformedRow)
		}
		id, err := strconv.Atoi(get(col["cand_num_panneau"]))
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w: cand_num_panneau %q", line, dataload.ErrMalformedRow, get(col["cand_num_panneau"]))
		}
		votes, err := parseCount(get(col["cand_nb_voix"]))
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w: cand_nb_voix: %v", line, dataload.ErrMalformedRow, err)
		}
		cast, err := parseCount(get(col["exprimes_nb"]))
		if err != nil {
			return nil, 0, fmt.Errorf("row %d: %w: exprimes_nb: %v", line, dataload.ErrMalformedRow, err)
		}
		if votes > cast {
			return nil, 0, fmt.Errorf("row %d: %w: cand_nb_voix %d > exprimes_nb %d", line, dataload.ErrMalformedRow, votes, cast)
		}
		share := ShareOf(votes, cast)
		if s, ok := parseShare(get(shareIdx)); ok {
			share = Share{Value: s, Valid: true}
		}
		out = append(out, CommuneResult{
			DepartmentCode: dep,
			CommuneCode:    com,
			AreaCode:       dep + com,
			CommuneName:    norm.NFC.String(get(communeNameIdx)),
			DepartmentName: norm.NFC.String(get(depNameIdx)),
			CandidateID:    id,
			FirstName:      norm.NFC.String(get(col["cand_prenom"])),
			LastName:       norm.NFC.String(get(col["cand_nom"])),
			Votes:          votes,
			Cast:           cast,
			Share:          share,
		})
	}
	return out, excluded, nil
}

// 计数列：非负整数；兼容导出工具写成 "123.0" 的情况
func parseCount(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not an integer: %q", s)
		}
		n = int64(f)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative count: %d", n)
	}
	return n, nil
}

// 源表自带的比例列；空值/非有限值视为不可用，由票数重新推导
func parseShare(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
