// map-render：离线渲染一次选择，把地图产物（JSON 或独立 HTML 页面）写到标准输出或文件
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"vote-map/internal/atlas"
	"vote-map/internal/config"
	"vote-map/internal/logger"
	"vote-map/internal/render"
	"vote-map/internal/results"
	"vote-map/internal/selection"
	"vote-map/internal/version"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type renderFlags struct {
	results     string
	communes    string
	departments string
	candidate   int
	level       string
	department  string
	metric      string
	dark        bool
	format      string
	out         string
}

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	logger.Setup()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f renderFlags
	root := &cobra.Command{
		Use:          "map-render",
		Short:        "Render an election choropleth for one candidate",
		Version:      version.Commit,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, f)
		},
	}
	fl := root.PersistentFlags()
	fl.StringVar(&f.results, "results", "", "commune results table (CSV, optionally gzip); default from RESULTS_PATH")
	fl.StringVar(&f.communes, "communes", "", "commune boundaries GeoJSON; default from COMMUNE_GEOJSON")
	fl.StringVar(&f.departments, "departments", "", "department boundaries GeoJSON; default from DEPARTMENT_GEOJSON")

	rf := root.Flags()
	rf.IntVar(&f.candidate, "candidate", 0, "candidate ballot number (required)")
	rf.StringVar(&f.level, "level", "department", "granularity: department or commune")
	rf.StringVar(&f.department, "department", "", "department code to zoom into (commune level only)")
	rf.StringVar(&f.metric, "metric", string(results.MetricVoteShare), "metric: vote_share_pct, votes_for_candidate or total_votes_cast")
	rf.BoolVar(&f.dark, "dark", false, "use the dark basemap")
	rf.StringVar(&f.format, "format", "html", "output format: html or json")
	rf.StringVarP(&f.out, "out", "o", "", "output file (default stdout)")
	_ = root.MarkFlagRequired("candidate")

	root.AddCommand(newListCmd(&f))
	return root
}

func newListCmd(f *renderFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List candidates and departments found in the inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadAtlas(cmd, *f)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "candidates:")
			for _, c := range a.Candidates() {
				fmt.Fprintf(w, "  %d\t%s\n", c.ID, c.DisplayName())
			}
			fmt.Fprintln(w, "departments:")
			for _, d := range a.DepartmentList() {
				fmt.Fprintf(w, "  %s\t%s\n", d.Code, d.Name)
			}
			return nil
		},
	}
}

func loadAtlas(cmd *cobra.Command, f renderFlags) (*atlas.Atlas, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if f.results != "" {
		cfg.ResultsPath = f.results
	}
	if f.communes != "" {
		cfg.CommuneGeoJSON = f.communes
	}
	if f.departments != "" {
		cfg.DepartmentGeoJSON = f.departments
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return atlas.Load(cmd.Context(), cfg.Sources(), logger.L())
}

func runRender(cmd *cobra.Command, f renderFlags) error {
	g, err := selection.ParseGranularity(f.level)
	if err != nil {
		return err
	}
	format := strings.ToLower(f.format)
	if format != "html" && format != "json" {
		return fmt.Errorf("unknown format %q", f.format)
	}
	a, err := loadAtlas(cmd, f)
	if err != nil {
		return err
	}
	m, err := a.MapMetric(selection.Request{CandidateID: f.candidate, Granularity: g, Department: f.department}, results.Metric(f.metric), f.dark)
	if err != nil {
		return err
	}
	logger.L().Info("map_render_ok",
		"candidate", f.candidate,
		"level", string(g),
		"colored", m.Stats.Colored,
		"unmatched_features", m.Stats.UnmatchedFeatures,
		"unmatched_rows", m.Stats.UnmatchedRows,
	)

	var w io.Writer = cmd.OutOrStdout()
	if f.out != "" {
		file, err := os.Create(f.out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	return render.WriteHTML(w, m)
}
