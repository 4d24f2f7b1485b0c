package main

import (
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "modernc.org/sqlite"

	"github.com/yumyai/genomeqc/logger"
	"github.com/yumyai/genomeqc/pkg/db"
	"github.com/yumyai/genomeqc/pkg/lineage"
	"github.com/yumyai/genomeqc/pkg/pipeline"
	"github.com/yumyai/genomeqc/pkg/report"
	"github.com/yumyai/genomeqc/pkg/stage"
)

const VERSION = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "qc":
		runQC(os.Args[2:])
	case "screen":
		runScreen(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: genomeqc <command> [flags]

commands:
  qc      completeness assessment + protein homology QC over a genome manifest
  screen  contamination screen over a genome manifest

run 'genomeqc <command> -h' for flags`)
}

func runQC(args []string) {
	fs := flag.NewFlagSet("qc", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "TSV with: GenomeID GenomeFasta ProteinsFaa [OutputPrefix]")
	lineageName := fs.String("lineage", "hymenoptera_odb10", "name (or path) of the BUSCO lineage dataset")
	refFaa := fs.String("ref", "dmel_known_refseq.faa", "reference protein FASTA for the homology search")
	cpu := fs.Int("cpu", 4, "threads forwarded to BUSCO and DIAMOND")
	outDir := fs.String("outdir", ".", "directory for all output artifacts")
	summaryPath := fs.String("summary", "master_summary.tsv", "master summary file (relative to outdir)")
	logFile := fs.String("log", "minimal_pipeline.log", "log file; empty logs to stderr only")
	dbPath := fs.String("db", "", "optional sqlite run store")
	fs.Parse(args)

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "qc: -manifest is required")
		os.Exit(2)
	}

	env, log := setup(*logFile, *outDir, *cpu, *dbPath)
	defer log.Sync() // Make sure that the buffered is flushed.
	defer env.Store.Close()

	err := pipeline.QC(env, pipeline.QCConfig{
		Manifest:    *manifestPath,
		Lineage:     *lineageName,
		RefProteins: *refFaa,
		OutDir:      *outDir,
		SummaryPath: *summaryPath,
	})
	if err != nil {
		log.Error("QC pipeline failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

func runScreen(args []string) {
	fs := flag.NewFlagSet("screen", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "TSV with: GenomeID GenomeFasta")
	refFaa := fs.String("ref", "", "protein FASTA of suspected contaminants (e.g. UniVec or PhiX proteins)")
	outPath := fs.String("out", "compiled_hits.tsv", "compiled hit table")
	threads := fs.Int("threads", 1, "threads forwarded to DIAMOND")
	label := fs.String("label", "", "contaminant label column; empty omits the column")
	noHeader := fs.Bool("no-header", false, "omit the header line from the compiled table")
	downloadURL := fs.String("download-url", "", "fetch the reference FASTA from this URL when missing")
	logFile := fs.String("log", "", "log file; empty logs to stderr only")
	dbPath := fs.String("db", "", "optional sqlite run store")
	fs.Parse(args)

	if *manifestPath == "" || *refFaa == "" {
		fmt.Fprintln(os.Stderr, "screen: -manifest and -ref are required")
		os.Exit(2)
	}

	env, log := setup(*logFile, ".", *threads, *dbPath)
	defer log.Sync()
	defer env.Store.Close()

	err := pipeline.Screen(env, pipeline.ScreenConfig{
		Manifest:    *manifestPath,
		RefProteins: *refFaa,
		OutPath:     *outPath,
		DownloadURL: *downloadURL,
		Schema: report.HitSchema{
			Label:  *label,
			Header: !*noHeader,
		},
	})
	if err != nil {
		log.Error("Contamination screen failed", zap.Error(err))
		log.Sync()
		os.Exit(1)
	}
}

// setup builds the per-run environment: logger, external tool runner,
// lineage cache and optional run store. The lineage cache directory comes
// from GENOMEQC_DATA when set.
func setup(logFile, workDir string, threads int, dbPath string) (*pipeline.Env, *zap.Logger) {
	log, err := logger.New(zapcore.InfoLevel, logFile)
	if err != nil {
		panic(err)
	}

	// Try load env
	if dotenvErr := godotenv.Load(); dotenvErr != nil {
		log.Warn("No .env found, using local environment")
	}

	lineageDir := ""
	if data := os.Getenv("GENOMEQC_DATA"); data != "" {
		lineageDir = path.Join(data, "lineages")
	}

	var store *db.RunStore
	if dbPath != "" {
		store, err = db.Open(dbPath)
		if err != nil {
			log.Error("Failed to open run store", zap.Error(err))
			log.Sync()
			os.Exit(1)
		}
	}

	runner := stage.NewRunner(workDir, threads, log)
	env := &pipeline.Env{
		Log:    log,
		Runner: runner,
		Cache: &lineage.Cache{
			Dir:   lineageDir,
			Fetch: runner.BuscoDownload,
			Log:   log,
		},
		Store: store,
	}

	log.Info("Start:", zap.String("Version", VERSION))
	return env, log
}
