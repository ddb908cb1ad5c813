package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Cascade/internal/domain"
)

// ErrInvalidPipeline — документ не удалось декодировать в PipelineSpec.
var ErrInvalidPipeline = errors.New("invalid pipeline document")

// ErrDuplicatePipeline — в каталоге несколько pipelines с одним именем.
var ErrDuplicatePipeline = errors.New("duplicate pipeline name")

// Расширения файлов, которые читает LoadDir.
var pipelineExtensions = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
}

// Parse декодирует PipelineSpec из YAML (или JSON, который тоже YAML).
// Структура не валидируется, для этого есть Validate.
func Parse(data []byte) (*domain.PipelineSpec, error) {
	var spec domain.PipelineSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPipeline, err)
	}
	return &spec, nil
}

// LoadFile читает pipeline из файла.
// Если имя не задано в документе, берётся имя файла без расширения.
func LoadFile(path string) (*domain.PipelineSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline: %w", err)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if spec.Name == "" {
		base := filepath.Base(path)
		spec.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return spec, nil
}

// LoadDir читает все pipelines каталога (без рекурсии).
// Результат отсортирован по имени pipeline.
func LoadDir(dir string) ([]*domain.PipelineSpec, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read pipelines dir: %w", err)
	}

	var specs []*domain.PipelineSpec
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !pipelineExtensions[filepath.Ext(entry.Name())] {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		spec, err := LoadFile(path)
		if err != nil {
			return nil, err
		}

		if prev, ok := seen[spec.Name]; ok {
			return nil, fmt.Errorf("%w: %s in %s and %s", ErrDuplicatePipeline, spec.Name, prev, path)
		}
		seen[spec.Name] = path
		specs = append(specs, spec)
	}

	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
	return specs, nil
}
