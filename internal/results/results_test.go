package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vote-map/internal/dataload"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "dep_code,commune_code,cand_num_panneau,cand_nom,cand_prenom,cand_nb_voix,exprimes_nb\n"

func read(t *testing.T, body string) ([]CommuneResult, int) {
	t.Helper()
	rows, excluded, err := ReadCommuneResults(strings.NewReader(header+body), DefaultLoadOptions())
	require.NoError(t, err)
	return rows, excluded
}

func TestReadCommuneResults_AreaCodeIsConcatenation(t *testing.T) {
	rows, _ := read(t, "01,002,1,DUPONT,Jean,10,20\n")
	require.Len(t, rows, 1)
	assert.Equal(t, "01", rows[0].DepartmentCode)
	assert.Equal(t, "002", rows[0].CommuneCode)
	assert.Equal(t, "01002", rows[0].AreaCode)
}

func TestReadCommuneResults_ExcludesSentinelPrefix(t *testing.T) {
	rows, excluded := read(t, strings.Join([]string{
		"ZA,101,1,DUPONT,Jean,10,20",
		"ZZ,001,1,DUPONT,Jean,5,10",
		"2A,004,1,DUPONT,Jean,3,6",
	}, "\n")+"\n")
	assert.Equal(t, 2, excluded)
	require.Len(t, rows, 1)
	assert.Equal(t, "2A004", rows[0].AreaCode)

	for _, a := range Aggregate(rows) {
		assert.False(t, strings.HasPrefix(a.AreaCode, "Z"))
	}
}

func TestReadCommuneResults_NormalizesCodes(t *testing.T) {
	rows, _ := read(t, " 2a , 004 ,1,DUPONT,Jean,3,6\n")
	require.Len(t, rows, 1)
	assert.Equal(t, "2A004", rows[0].AreaCode)
}

func TestReadCommuneResults_ShareColumn(t *testing.T) {
	body := "dep_code,commune_code,cand_num_panneau,cand_nom,cand_prenom,cand_nb_voix,exprimes_nb,cand_rapport_exprim\n" +
		"75,056,1,DUPONT,Jean,100,200,49.5\n" +
		"75,057,1,DUPONT,Jean,50,100,\n" +
		"75,058,1,DUPONT,Jean,0,0,\n"
	rows, _, err := ReadCommuneResults(strings.NewReader(body), DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Share{Value: 49.5, Valid: true}, rows[0].Share)
	assert.Equal(t, Share{Value: 50, Valid: true}, rows[1].Share)
	assert.False(t, rows[2].Share.Valid)
}

func TestReadCommuneResults_Semicolon(t *testing.T) {
	body := strings.ReplaceAll(header, ",", ";") + "01;002;1;DUPONT;Jean;10;20\n"
	opts := DefaultLoadOptions()
	opts.Delimiter = ';'
	rows, _, err := ReadCommuneResults(strings.NewReader(body), opts)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "01002", rows[0].AreaCode)
}

func TestReadCommuneResults_BOMHeader(t *testing.T) {
	rows, _, err := ReadCommuneResults(strings.NewReader("\ufeff"+header+"01,002,1,A,B,1,2\n"), DefaultLoadOptions())
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadCommuneResults_Errors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"missing column", "dep_code,commune_code\n01,002\n", dataload.ErrMissingColumn},
		{"empty table", "", dataload.ErrMissingColumn},
		{"votes above cast", header + "01,002,1,A,B,30,20\n", dataload.ErrMalformedRow},
		{"negative count", header + "01,002,1,A,B,-1,20\n", dataload.ErrMalformedRow},
		{"not a number", header + "01,002,1,A,B,abc,20\n", dataload.ErrMalformedRow},
		{"bad candidate id", header + "01,002,x,A,B,1,20\n", dataload.ErrMalformedRow},
		{"empty code", header + ",002,1,A,B,1,20\n", dataload.ErrMalformedRow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ReadCommuneResults(strings.NewReader(tc.body), DefaultLoadOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadCommuneResults_GzipFile(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(header + "75,056,1,DUPONT,Jean,100,200\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	p := filepath.Join(t.TempDir(), "04-resultats-par-commune.csv.gz")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))

	rows, err := LoadCommuneResults(p, DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "75056", rows[0].AreaCode)
}

func TestLoadCommuneResults_ErrorNamesFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(p, []byte("dep_code\n01\n"), 0o644))

	_, err := LoadCommuneResults(p, DefaultLoadOptions())
	var de *dataload.Error
	require.True(t, errors.As(err, &de))
	assert.Equal(t, p, de.Path)
	assert.ErrorIs(t, err, dataload.ErrMissingColumn)

	_, err = LoadCommuneResults(filepath.Join(t.TempDir(), "missing.csv.gz"), DefaultLoadOptions())
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "open", de.Op)
}

func TestAggregate_ParisScenario(t *testing.T) {
	rows, _ := read(t, "75,056,1,DUPONT,Jean,100,200\n75,057,1,DUPONT,Jean,50,100\n")
	agg := Aggregate(rows)
	require.Len(t, agg, 1)
	assert.Equal(t, "75", agg[0].AreaCode)
	assert.Equal(t, int64(150), agg[0].Votes)
	assert.Equal(t, int64(300), agg[0].Cast)
	assert.True(t, agg[0].Share.Valid)
	assert.InDelta(t, 50.0, agg[0].Share.Value, 1e-9)
}

func TestAggregate_SumsMatchCommunes(t *testing.T) {
	rows, _ := read(t, strings.Join([]string{
		"01,001,1,DUPONT,Jean,10,100",
		"01,001,2,MARTIN,Anne,90,100",
		"01,002,1,DUPONT,Jean,7,40",
		"01,002,2,MARTIN,Anne,33,40",
		"02,001,1,DUPONT,Jean,1,3",
		"02,001,2,MARTIN,Anne,2,3",
	}, "\n")+"\n")

	type key struct {
		dep string
		id  int
	}
	votes := map[key]int64{}
	cast := map[key]int64{}
	for _, r := range rows {
		votes[key{r.DepartmentCode, r.CandidateID}] += r.Votes
		cast[key{r.DepartmentCode, r.CandidateID}] += r.Cast
	}

	agg := Aggregate(rows)
	require.Len(t, agg, 4)
	for _, a := range agg {
		k := key{a.AreaCode, a.CandidateID}
		assert.Equal(t, votes[k], a.Votes, "votes %v", k)
		assert.Equal(t, cast[k], a.Cast, "cast %v", k)
		require.True(t, a.Share.Valid)
		assert.GreaterOrEqual(t, a.Share.Value, 0.0)
		assert.LessOrEqual(t, a.Share.Value, 100.0)
	}
}

func TestAggregate_ZeroCastIsMissing(t *testing.T) {
	rows, _ := read(t, "03,001,1,DUPONT,Jean,0,0\n03,002,1,DUPONT,Jean,0,0\n")
	agg := Aggregate(rows)
	require.Len(t, agg, 1)
	assert.False(t, agg[0].Share.Valid)
	assert.False(t, math.IsNaN(agg[0].Share.Value))

	v, ok := agg[0].Measure(MetricVoteShare)
	assert.False(t, ok)
	assert.Zero(t, v)

	b, err := json.Marshal(agg[0])
	require.NoError(t, err)
	assert.Contains(t, string(b), `"vote_share_pct":null`)
}

func TestAggregate_DeterministicOrder(t *testing.T) {
	a, _ := read(t, "02,001,2,B,b,1,2\n01,001,1,A,a,1,2\n01,001,2,B,b,1,2\n")
	b, _ := read(t, "01,001,2,B,b,1,2\n02,001,2,B,b,1,2\n01,001,1,A,a,1,2\n")
	assert.Equal(t, Aggregate(a), Aggregate(b))
}

func TestDirectory_UniquePerCandidate(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 500; i++ {
		fmt.Fprintf(&sb, "01,%03d,3,DUPONT,Jean,1,2\n", i)
	}
	rows, _ := read(t, sb.String()+"01,999,5,MARTIN,Anne,1,2\n")

	d, conflicts := NewDirectory(rows)
	assert.Empty(t, conflicts)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []Candidate{
		{ID: 3, FirstName: "Jean", LastName: "DUPONT"},
		{ID: 5, FirstName: "Anne", LastName: "MARTIN"},
	}, d.Candidates())

	name, err := d.Name(3)
	require.NoError(t, err)
	assert.Equal(t, "Jean DUPONT", name)
}

func TestDirectory_UnknownCandidate(t *testing.T) {
	d, _ := NewDirectory(nil)
	_, err := d.Name(42)
	assert.ErrorIs(t, err, ErrUnknownCandidate)
}

func TestDirectory_FirstSeenWins(t *testing.T) {
	rows, _ := read(t, "01,001,1,DUPONT,Jean,1,2\n01,002,1,DUPOND,Jean,1,2\n01,003,1,DUPOND,Jean,1,2\n")
	d, conflicts := NewDirectory(rows)
	name, err := d.Name(1)
	require.NoError(t, err)
	assert.Equal(t, "Jean DUPONT", name)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "DUPOND", conflicts[0].Ignored.LastName)
}

func TestDepartmentCodes(t *testing.T) {
	rows, _ := read(t, "75,056,1,A,a,1,2\n01,001,1,A,a,1,2\n2A,004,1,A,a,1,2\n75,057,1,A,a,1,2\n")
	assert.Equal(t, []string{"01", "2A", "75"}, DepartmentCodes(rows))
}

func TestMeasure(t *testing.T) {
	r := CommuneResult{Votes: 5, Cast: 20, Share: ShareOf(5, 20)}
	v, ok := r.Measure(MetricVoteShare)
	assert.True(t, ok)
	assert.InDelta(t, 25.0, v, 1e-9)
	v, _ = r.Measure(MetricVotes)
	assert.Equal(t, 5.0, v)
	v, _ = r.Measure(MetricCast)
	assert.Equal(t, 20.0, v)
	_, ok = r.Measure(Metric("turnout"))
	assert.False(t, ok)
	assert.False(t, KnownMetric("turnout"))
}
