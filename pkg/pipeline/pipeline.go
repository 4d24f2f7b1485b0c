package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/yumyai/genomeqc/internal/util"
	"github.com/yumyai/genomeqc/pkg/busco"
	"github.com/yumyai/genomeqc/pkg/db"
	"github.com/yumyai/genomeqc/pkg/lineage"
	"github.com/yumyai/genomeqc/pkg/manifest"
	"github.com/yumyai/genomeqc/pkg/pident"
	"github.com/yumyai/genomeqc/pkg/report"
	"github.com/yumyai/genomeqc/pkg/stage"
)

// DB prefixes for the two reference indexes, created once per batch.
const (
	qcDBPrefix     = "ref_db"
	screenDBPrefix = "contaminant_db"
)

// Env bundles the collaborators a batch run needs. Constructed once in main
// and handed to the run loops; the logger and runner are scoped to this run.
type Env struct {
	Log    *zap.Logger
	Runner *stage.Runner
	Cache  *lineage.Cache
	Store  *db.RunStore // nil disables run recording
}

// QCConfig drives the completeness + homology pipeline.
type QCConfig struct {
	Manifest    string
	Lineage     string
	RefProteins string
	OutDir      string
	SummaryPath string
}

// ScreenConfig drives the contamination screen.
type ScreenConfig struct {
	Manifest    string
	RefProteins string
	OutPath     string
	DownloadURL string
	Schema      report.HitSchema
}

// QC runs the full batch: resolve the shared lineage once, index the
// reference proteins once, then per genome in manifest order run the
// completeness stage, parse its report, run the homology search when the
// protein file exists, derive the identity distribution, and append one
// summary row. Jobs run strictly sequentially; a nonzero tool exit aborts
// the remainder of the batch.
func QC(env *Env, cfg QCConfig) error {
	start := time.Now()
	log := env.Log

	jobs, err := manifest.Read(cfg.Manifest, manifest.QCColumns, log)
	if err != nil {
		return err
	}

	lineagePath, err := env.Cache.Resolve(cfg.Lineage)
	if err != nil {
		return err
	}

	if !util.FileExists(cfg.RefProteins) {
		return fmt.Errorf("reference protein FASTA not found: %s", cfg.RefProteins)
	}
	if err := env.Runner.DiamondMakeDB(cfg.RefProteins, qcDBPrefix); err != nil {
		return err
	}

	summaryFile, err := os.Create(inDir(cfg.OutDir, cfg.SummaryPath))
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer summaryFile.Close()

	summary, err := report.NewSummaryWriter(summaryFile)
	if err != nil {
		return err
	}

	runID, err := env.Store.BeginRun("qc", cfg.Manifest)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if err := env.Store.SetJobStatus(runID, job.ID, db.JobQueued); err != nil {
			return err
		}
	}

	for _, job := range jobs {
		log.Info("Processing genome",
			zap.String("genome_id", job.ID),
			zap.String("genome_fasta", job.GenomePath),
			zap.String("proteins_fasta", job.ProteinPath),
			zap.String("prefix", job.OutPrefix))

		if err := env.Store.SetJobStatus(runID, job.ID, db.JobRunning); err != nil {
			return err
		}

		if err := env.Runner.Busco(job.GenomePath, job.OutPrefix, lineagePath); err != nil {
			return failRun(env, runID, job.ID, err)
		}

		stats := busco.ParseShortSummary(busco.SummaryPath(cfg.OutDir, job.OutPrefix), log)

		if util.FileExists(job.ProteinPath) {
			if err := runHomology(env, cfg.OutDir, job); err != nil {
				return failRun(env, runID, job.ID, err)
			}
		} else {
			log.Warn("Proteins file not found, skipping homology search",
				zap.String("genome_id", job.ID),
				zap.String("proteins_fasta", job.ProteinPath))
		}

		if err := summary.Append(job.ID, stats); err != nil {
			return failRun(env, runID, job.ID, err)
		}
		if err := env.Store.CompleteJob(runID, job.ID, stats); err != nil {
			return err
		}
	}

	if err := env.Store.FinishRun(runID, "completed"); err != nil {
		return err
	}
	log.Info("All genomes processed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// runHomology aligns one genome's proteins against the reference db and
// writes the identity histogram and cumulative distribution next to the hit
// table.
func runHomology(env *Env, outDir string, job manifest.Job) error {
	hitTSV := job.OutPrefix + "_diamond.tsv"
	if err := env.Runner.DiamondBlastp(qcDBPrefix, job.ProteinPath, hitTSV); err != nil {
		return err
	}

	f, err := os.Open(inDir(outDir, hitTSV))
	if err != nil {
		return fmt.Errorf("failed to open hit table: %w", err)
	}
	defer f.Close()

	dist, err := pident.Aggregate(f, env.Log)
	if err != nil {
		return err
	}

	histPath := inDir(outDir, job.OutPrefix+"_pident_hist.txt")
	if err := writeTo(histPath, dist.WriteHist); err != nil {
		return err
	}
	cumPath := inDir(outDir, job.OutPrefix+"_pident_cumulative.txt")
	if err := writeTo(cumPath, dist.WriteCumulative); err != nil {
		return err
	}

	env.Log.Info("Identity distribution written",
		zap.String("genome_id", job.ID),
		zap.Int("queries_with_hits", dist.Queries),
		zap.String("histogram", histPath),
		zap.String("cumulative", cumPath))
	return nil
}

// Screen compiles contamination hits for every genome in the manifest into
// one table, each line tagged with its genome id (and contaminant label when
// the schema carries one). Genomes whose FASTA is missing are skipped with a
// warning; a nonzero tool exit aborts the batch.
func Screen(env *Env, cfg ScreenConfig) error {
	start := time.Now()
	log := env.Log

	if !util.FileExists(cfg.RefProteins) {
		if cfg.DownloadURL == "" {
			return fmt.Errorf("contaminant reference FASTA not found: %s", cfg.RefProteins)
		}
		if err := env.Runner.Wget(cfg.DownloadURL, cfg.RefProteins); err != nil {
			return err
		}
		if !util.FileExists(cfg.RefProteins) {
			return fmt.Errorf("reference FASTA still missing after download: %s", cfg.RefProteins)
		}
	}

	jobs, err := manifest.Read(cfg.Manifest, manifest.ScreenColumns, log)
	if err != nil {
		return err
	}

	if err := env.Runner.DiamondMakeDB(cfg.RefProteins, screenDBPrefix); err != nil {
		return err
	}

	out, err := os.Create(cfg.OutPath)
	if err != nil {
		return fmt.Errorf("failed to create compiled hit file: %w", err)
	}
	defer out.Close()

	hw, err := report.NewHitWriter(out, cfg.Schema)
	if err != nil {
		return err
	}

	runID, err := env.Store.BeginRun("screen", cfg.Manifest)
	if err != nil {
		return err
	}

	totalHits := 0
	for _, job := range jobs {
		if !util.FileExists(job.GenomePath) {
			log.Warn("Genome file not found, skipping",
				zap.String("genome_id", job.ID),
				zap.String("genome_fasta", job.GenomePath))
			if err := env.Store.SetJobStatus(runID, job.ID, db.JobSkipped); err != nil {
				return err
			}
			continue
		}

		log.Info("Screening genome", zap.String("genome_id", job.ID))
		if err := env.Store.SetJobStatus(runID, job.ID, db.JobRunning); err != nil {
			return err
		}

		hits, err := env.Runner.DiamondBlastx(screenDBPrefix, job.GenomePath)
		if err != nil {
			return failRun(env, runID, job.ID, err)
		}
		log.Info("Hits found", zap.String("genome_id", job.ID), zap.Int("hits", len(hits)))

		for _, h := range hits {
			if err := hw.Append(job.ID, h); err != nil {
				return failRun(env, runID, job.ID, err)
			}
		}
		totalHits += len(hits)

		if err := env.Store.SetJobStatus(runID, job.ID, db.JobCompleted); err != nil {
			return err
		}
	}

	if err := env.Store.FinishRun(runID, "completed"); err != nil {
		return err
	}
	log.Info("Screen done",
		zap.Int("total_hits", totalHits),
		zap.String("out", cfg.OutPath),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func failRun(env *Env, runID, genomeID string, err error) error {
	if serr := env.Store.SetJobStatus(runID, genomeID, db.JobFailed); serr != nil {
		env.Log.Warn("Failed to record job failure", zap.Error(serr))
	}
	if serr := env.Store.FinishRun(runID, "failed"); serr != nil {
		env.Log.Warn("Failed to close out run", zap.Error(serr))
	}
	return err
}

func inDir(dir, path string) string {
	if dir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// writeTo renders into a freshly created file.
func writeTo(path string, render func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
