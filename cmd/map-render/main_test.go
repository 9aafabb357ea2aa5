package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsCSV = `dep_code,commune_code,commune_name,cand_num_panneau,cand_nom,cand_prenom,cand_nb_voix,exprimes_nb
75,056,Paris,3,MARTIN,Anne,100,200
75,101,Paris 1er,3,MARTIN,Anne,50,100
`

const communesGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"code":"75056","nom":"Paris"},"geometry":{"type":"Polygon","coordinates":[[[2.25,48.8],[2.35,48.8],[2.35,48.9],[2.25,48.9],[2.25,48.8]]]}},
 {"type":"Feature","properties":{"code":"75101","nom":"Paris 1er"},"geometry":{"type":"Polygon","coordinates":[[[2.35,48.8],[2.45,48.8],[2.45,48.9],[2.35,48.9],[2.35,48.8]]]}}
]}`

const departmentsGeoJSON = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"code":"75","nom":"Paris"},"geometry":{"type":"Polygon","coordinates":[[[2.25,48.8],[2.45,48.8],[2.45,48.9],[2.25,48.9],[2.25,48.8]]]}}
]}`

func inputArgs(t *testing.T) []string {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}
	return []string{
		"--results", write("results.csv", resultsCSV),
		"--communes", write("communes.geojson", communesGeoJSON),
		"--departments", write("departements.geojson", departmentsGeoJSON),
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRender_JSON(t *testing.T) {
	out, err := run(t, append(inputArgs(t), "--candidate", "3", "--format", "json")...)
	require.NoError(t, err)

	var doc struct {
		Legend struct {
			Title string `json:"title"`
		} `json:"legend"`
		Stats struct {
			Colored int `json:"colored"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc), out)
	assert.Equal(t, "Anne MARTIN", doc.Legend.Title)
	assert.Equal(t, 1, doc.Stats.Colored)
}

func TestRender_HTMLToFile(t *testing.T) {
	args := inputArgs(t)
	dst := filepath.Join(t.TempDir(), "map.html")
	_, err := run(t, append(args, "--candidate", "3", "--level", "commune", "--department", "75", "--dark", "-o", dst)...)
	require.NoError(t, err)

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(b), "L.geoJSON")
	assert.Contains(t, string(b), "dark_all")
}

func TestRender_Errors(t *testing.T) {
	args := inputArgs(t)
	cases := [][]string{
		{"--candidate", "99"},
		{"--candidate", "3", "--level", "region"},
		{"--candidate", "3", "--format", "pdf"},
		{"--candidate", "3", "--metric", "turnout"},
		{},
	}
	for _, c := range cases {
		_, err := run(t, append(append([]string{}, args...), c...)...)
		assert.Error(t, err, c)
	}
}

func TestList(t *testing.T) {
	out, err := run(t, append([]string{"list"}, inputArgs(t)...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "3\tAnne MARTIN")
	assert.Contains(t, out, "75\tParis")
}
