package stage

import (
	"bytes"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/yumyai/genomeqc/internal/util"
)

// ExecError reports a nonzero exit from an external analysis tool.
// It aborts the batch: there is no per-genome retry or isolation.
type ExecError struct {
	Tool   string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %v: %s", e.Tool, e.Err, msg)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// Runner invokes the external stages for one batch run. All commands run
// inside Dir, and Threads is forwarded unchanged to tools that take a
// thread count. Exec is swappable so tests can run without the binaries.
type Runner struct {
	Dir     string
	Threads int
	Log     *zap.Logger

	Exec func(name string, args ...string) ([]byte, error)
}

func NewRunner(dir string, threads int, log *zap.Logger) *Runner {
	r := &Runner{
		Dir:     dir,
		Threads: threads,
		Log:     log,
	}
	r.Exec = r.runCommand
	return r
}

func (r *Runner) runCommand(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = r.Dir

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, &ExecError{Tool: name, Stderr: stderr.String(), Err: err}
	}

	return out.Bytes(), nil
}

// Busco runs the completeness assessment in genome mode. The tool writes its
// report under run_<outPrefix>/ inside the runner's working directory.
func (r *Runner) Busco(genomeFasta, outPrefix, lineagePath string) error {
	args := []string{
		fmt.Sprintf("--in=%s", genomeFasta),
		fmt.Sprintf("--out=%s", outPrefix),
		fmt.Sprintf("--lineage_path=%s", lineagePath),
		"--mode=genome",
		fmt.Sprintf("--cpu=%d", r.Threads),
	}
	r.Log.Info("Running BUSCO", zap.String("cmd", "busco "+strings.Join(args, " ")))

	_, err := r.Exec("busco", args...)
	return err
}

// BuscoDownload fetches a lineage dataset into the working directory.
func (r *Runner) BuscoDownload(lineage string) error {
	r.Log.Info("Downloading BUSCO lineage", zap.String("lineage", lineage))
	_, err := r.Exec("busco", "download", "--lineages", lineage)
	return err
}

// DiamondMakeDB indexes the reference proteins once per batch. A db that is
// already on disk is reused, so the shared reference stays read-only for
// every genome after this returns.
func (r *Runner) DiamondMakeDB(refFaa, dbPrefix string) error {
	if util.FileExists(r.inDir(dbPrefix + ".dmnd")) {
		r.Log.Info("DIAMOND DB already present", zap.String("db", dbPrefix+".dmnd"))
		return nil
	}

	r.Log.Info("Creating DIAMOND DB", zap.String("ref", refFaa), zap.String("db", dbPrefix))
	_, err := r.Exec("diamond", "makedb", "--in", refFaa, "-d", dbPrefix)
	return err
}

// DiamondBlastp aligns predicted proteins against the reference set,
// writing the twelve-column tabular hits to outTSV.
func (r *Runner) DiamondBlastp(dbPrefix, queryFaa, outTSV string) error {
	args := []string{
		"blastp",
		"--db", dbPrefix + ".dmnd",
		"--query", queryFaa,
		"--out", outTSV,
		"--outfmt", "6 qseqid sseqid pident length mismatch gapopen qstart qend sstart send evalue bitscore",
		"--threads", fmt.Sprintf("%d", r.Threads),
	}
	r.Log.Info("DIAMOND alignment", zap.String("cmd", "diamond "+strings.Join(args, " ")))

	_, err := r.Exec("diamond", args...)
	return err
}

// DiamondBlastx screens a genome against a contaminant protein db, returning
// the captured tabular hit lines.
func (r *Runner) DiamondBlastx(dbPrefix, genomeFasta string) ([]string, error) {
	args := []string{
		"blastx",
		"--db", dbPrefix + ".dmnd",
		"--query", genomeFasta,
		"--outfmt", "6",
		"--threads", fmt.Sprintf("%d", r.Threads),
		"--evalue", "1e-5",
	}
	r.Log.Info("Running diamond blastx", zap.String("query", genomeFasta))

	out, err := r.Exec("diamond", args...)
	if err != nil {
		return nil, err
	}

	var hits []string
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) != "" {
			hits = append(hits, line)
		}
	}
	return hits, nil
}

// Wget fetches a missing reference FASTA from a URL.
func (r *Runner) Wget(url, dest string) error {
	r.Log.Info("Downloading reference FASTA", zap.String("url", url), zap.String("dest", dest))
	_, err := r.Exec("wget", "-O", dest, url)
	return err
}

func (r *Runner) inDir(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.Dir, path)
}
