package scheduler

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/domain"
	"github.com/shaiso/Cascade/internal/pipeline"
)

// Entry — расписание вместе с загруженным pipeline.
type Entry struct {
	Schedule domain.Schedule
	Spec     *domain.PipelineSpec
}

// schedulesFile — формат файла расписаний.
//
//	schedules:
//	  - name: nightly-release
//	    pipeline: release.yaml   # относительно каталога файла
//	    cron: "0 3 * * *"
//	    timezone: Europe/Moscow
//	    params:
//	      channel: stable
type schedulesFile struct {
	Schedules []domain.Schedule `yaml:"schedules"`
}

// LoadFile читает расписания и pipelines, на которые они ссылаются.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules: %w", err)
	}

	var file schedulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%s: decode schedules: %w", path, err)
	}

	dir := filepath.Dir(path)
	entries := make([]Entry, 0, len(file.Schedules))
	for _, sched := range file.Schedules {
		if sched.Pipeline == "" {
			return nil, fmt.Errorf("schedule %q: pipeline is required", sched.Name)
		}

		pipelinePath := sched.Pipeline
		if !filepath.IsAbs(pipelinePath) {
			pipelinePath = filepath.Join(dir, pipelinePath)
		}

		spec, err := pipeline.LoadFile(pipelinePath)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", sched.Name, err)
		}

		entries = append(entries, Entry{Schedule: sched, Spec: spec})
	}

	return entries, nil
}
