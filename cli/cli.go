// Package cli is the thin urfave/cli/v2 entrypoint wrapper, kept
// deliberately thin per spec.md §1 ("CLI/argument parsing" is an
// external collaborator, not core scope). Grounded on the teacher's
// cli/cli.go flag-and-command layout, stripped of every CIDR/IP/TUI
// flag and rebuilt around the three pipeline operations: download,
// extract, cotahist.
package cli

import (
	"context"
	"fmt"

	"github.com/brdata/pipeline/config"
	"github.com/brdata/pipeline/domain"
	"github.com/brdata/pipeline/download"
	"github.com/brdata/pipeline/extract"
	"github.com/brdata/pipeline/httpclient"
	"github.com/brdata/pipeline/orchestrator"
	"github.com/brdata/pipeline/retry"
	urfavecli "github.com/urfave/cli/v2"
)

var (
	configFlag = &urfavecli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML configuration file",
	}
	destFlag = &urfavecli.StringFlag{
		Name:     "dest",
		Usage:    "destination directory",
		Required: true,
	}
	docTypesFlag = &urfavecli.StringSliceFlag{
		Name:  "doc-type",
		Usage: "CVM document type (repeatable): DFP, ITR, FRE, FCA, CGVN, VLMO, IPE",
	}
	yearsFlag = &urfavecli.IntSliceFlag{
		Name:  "year",
		Usage: "year to fetch (repeatable)",
	}
	baseURLFlag = &urfavecli.StringFlag{
		Name:  "base-url",
		Usage: "CVM regulatory source base URL",
		Value: "https://dados.cvm.gov.br",
	}

	zipFlag = &urfavecli.StringFlag{
		Name:     "zip",
		Usage:    "path to a CVM ZIP to extract",
		Required: true,
	}
	outFlag = &urfavecli.StringFlag{
		Name:     "out",
		Usage:    "output directory for per-CSV Parquet files",
		Required: true,
	}

	sourceDirFlag = &urfavecli.StringFlag{
		Name:     "source-dir",
		Usage:    "directory containing discovered COTAHIST_A{yyyy}.ZIP files",
		Required: true,
	}
	assetClassesFlag = &urfavecli.StringSliceFlag{
		Name:  "asset-class",
		Usage: "B3 asset class (repeatable): ações, etf, opções, termo, exercicio_opcoes, forward, leilao",
	}
	yearFirstFlag = &urfavecli.IntFlag{Name: "year-first", Required: true}
	yearLastFlag  = &urfavecli.IntFlag{Name: "year-last", Required: true}
	outputNameFlag = &urfavecli.StringFlag{Name: "output-name", Value: "cotahist"}
	modeFlag       = &urfavecli.StringFlag{Name: "mode", Value: "FAST", Usage: "FAST or SLOW"}
)

// App is the pipeline's entrypoint command tree.
var App = &urfavecli.App{
	Name:  "brdata-pipeline",
	Usage: "download and extract Brazilian public financial data to Parquet",
	Commands: []*urfavecli.Command{
		downloadCommand,
		extractCommand,
		cotahistCommand,
	},
}

var downloadCommand = &urfavecli.Command{
	Name:  "download",
	Usage: "fetch CVM document ZIPs into a destination directory",
	Flags: []urfavecli.Flag{configFlag, destFlag, docTypesFlag, yearsFlag, baseURLFlag},
	Action: func(c *urfavecli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return err
		}
		years := c.IntSlice("year")
		intYears := make([]int, len(years))
		copy(intYears, years)

		planner := download.DefaultCVMPlanner(c.String("base-url"))
		plan, err := download.BuildPlan(planner, c.StringSlice("doc-type"), intYears)
		if err != nil {
			return err
		}

		strategy := retry.DefaultStrategy()
		strategy.Multiplier = cfg.Network.RetryBackoff

		getter := httpclient.NewDefault(cfg.Network.Timeout())
		engine := download.NewEngine(download.Config{
			MaxWorkers: cfg.MaxWorkers,
			MaxRetries: cfg.Network.MaxRetries,
			Strategy:   strategy,
		}, getter)

		outcome, err := engine.Download(context.Background(), plan, c.String("dest"))
		if err != nil {
			return err
		}
		fmt.Printf("downloaded: %d succeeded, %d failed\n", outcome.SuccessCount, outcome.ErrorCount)
		for id, msg := range outcome.Failed {
			fmt.Printf("  failed %s: %s\n", id, msg)
		}
		return nil
	},
}

var extractCommand = &urfavecli.Command{
	Name:  "extract",
	Usage: "convert every CSV inside a CVM ZIP into sibling Parquet files",
	Flags: []urfavecli.Flag{zipFlag, outFlag},
	Action: func(c *urfavecli.Context) error {
		e := extract.NewExtractor()
		created, err := e.Extract(c.String("zip"), c.String("out"))
		if err != nil {
			return err
		}
		fmt.Printf("wrote %d parquet file(s)\n", len(created))
		for _, p := range created {
			fmt.Println(" ", p)
		}
		return nil
	},
}

var cotahistCommand = &urfavecli.Command{
	Name:  "cotahist",
	Usage: "parse and consolidate B3 COTAHIST ZIPs into one Parquet file",
	Flags: []urfavecli.Flag{
		sourceDirFlag, destFlag, assetClassesFlag, yearFirstFlag, yearLastFlag,
		outputNameFlag, modeFlag,
	},
	Action: func(c *urfavecli.Context) error {
		mode := domain.ModeFast
		if c.String("mode") == "SLOW" {
			mode = domain.ModeSlow
		}

		zips, err := discoverZips(c.String("source-dir"))
		if err != nil {
			return err
		}

		req, err := domain.NewExtractionRequest(
			c.String("source-dir"), c.String("dest"), c.StringSlice("asset-class"),
			c.Int("year-first"), c.Int("year-last"), zips, c.String("output-name"), mode,
		)
		if err != nil {
			return err
		}

		o := orchestrator.NewOrchestrator()
		report, err := o.Execute(context.Background(), req)
		if err != nil {
			return err
		}
		fmt.Printf("processed %d files: %d ok, %d failed, %d records -> %s\n",
			report.TotalFiles, report.SuccessCount, report.ErrorCount, report.TotalRecords, report.OutputFile)
		return nil
	},
}
