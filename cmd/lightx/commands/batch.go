package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"imagejobs/internal/lightx"
	"imagejobs/internal/storage"
	"imagejobs/pkg/zip"
)

// BatchJob is one entry of a batch file.
type BatchJob struct {
	Name      string            `yaml:"name" json:"name"`
	Operation string            `yaml:"operation" json:"operation"`
	Inputs    map[string]string `yaml:"inputs" json:"inputs"`
	Params    map[string]string `yaml:"params" json:"params"`
}

// LoadBatchFile reads a YAML or JSON list of jobs. Relative input paths are
// resolved against the file's directory.
func LoadBatchFile(path string) ([]BatchJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var jobs []BatchJob
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &jobs)
	} else {
		err = yaml.Unmarshal(data, &jobs)
	}
	if err != nil {
		return nil, fmt.Errorf("decode batch file %s: %w", path, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("batch file %s has no jobs", path)
	}
	base := filepath.Dir(path)
	names := make(map[string]struct{}, len(jobs))
	for i := range jobs {
		if jobs[i].Name == "" {
			jobs[i].Name = fmt.Sprintf("job-%d", i+1)
		}
		if _, dup := names[jobs[i].Name]; dup {
			return nil, fmt.Errorf("batch file %s: duplicate job name %q", path, jobs[i].Name)
		}
		names[jobs[i].Name] = struct{}{}
		for slot, p := range jobs[i].Inputs {
			if !filepath.IsAbs(p) {
				jobs[i].Inputs[slot] = filepath.Join(base, p)
			}
		}
	}
	return jobs, nil
}

// BatchAction runs every job of a batch file with bounded concurrency. One
// failing job does not stop the others.
func BatchAction(ctx context.Context, cmd *cli.Command) error {
	jobs, err := LoadBatchFile(cmd.String("file"))
	if err != nil {
		return err
	}
	app, err := NewAppContext(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	limit := cmd.Int("concurrency")
	if limit <= 0 {
		limit = app.Config.BatchConcurrency
	}
	results := app.runBatch(ctx, jobs, limit)

	if dir := app.outputDir(cmd); dir != "" {
		for i := range results {
			if results[i].Error != "" {
				continue
			}
			if err := app.saveOutputs(ctx, dir, &results[i]); err != nil {
				results[i].Error, results[i].Kind = err.Error(), lightx.KindName(err)
			}
		}
	}
	if archive := cmd.String("archive"); archive != "" {
		if err := app.archiveOutputs(ctx, archive, results); err != nil {
			return err
		}
	}

	if err := writeJSON(app.Out, results); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d batch jobs failed", failed, len(results))
	}
	return nil
}

func (a *AppContext) runBatch(ctx context.Context, jobs []BatchJob, limit int) []result {
	results := make([]result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = a.runJob(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *AppContext) runJob(ctx context.Context, job BatchJob) result {
	op, err := a.Catalog.Lookup(job.Operation)
	if err != nil {
		res := newResult(job.Operation, nil, err)
		res.Name = job.Name
		return res
	}
	assets := make(map[string]lightx.Asset, len(job.Inputs))
	for slot, path := range job.Inputs {
		assets[slot] = lightx.FromFile(path, "")
	}
	started := time.Now()
	status, err := a.Workflow.Run(ctx, op, assets, lightx.Params(job.Params))
	event := a.Logger.Info()
	if err != nil {
		event = a.Logger.Warn().Err(err)
	}
	event.Str("job", job.Name).Str("operation", op.Name).Dur("elapsed", time.Since(started)).Msg("batch job finished")

	res := newResult(op.Name, status, err)
	res.Name = job.Name
	return res
}

// archiveOutputs downloads every successful output into one zip file.
func (a *AppContext) archiveOutputs(ctx context.Context, path string, results []result) error {
	var entries []zip.Entry
	used := map[string]bool{}
	for _, r := range results {
		if r.Error != "" || r.OutputURL == "" {
			continue
		}
		data, contentType, err := a.Client.Download(ctx, r.OutputURL)
		if err != nil {
			return fmt.Errorf("download output of %s: %w", r.Name, err)
		}
		// distinct job names may share a slug
		filename := storage.FileName(r.Name, contentType)
		for i := 2; used[filename]; i++ {
			filename = storage.FileName(fmt.Sprintf("%s-%d", r.Name, i), contentType)
		}
		used[filename] = true
		entries = append(entries, zip.Entry{
			Filename: filename,
			Data:     data,
			Modified: time.Now(),
		})
	}
	if len(entries) == 0 {
		return fmt.Errorf("no outputs to archive")
	}
	archive, err := zip.Archive(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, archive, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}
