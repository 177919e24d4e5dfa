package stager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Ключи options, через которые job ссылается на артефакты.
const (
	OptRequirementsFile = "requirements_file"
	OptExtraPackages    = "extra_packages"
	OptSetupFile        = "setup_file"
)

// Имена staged-ресурсов для requirements и setup-файла фиксированы,
// чтобы воркер находил их независимо от исходных путей.
const (
	stagedRequirementsName = "requirements.txt"
	stagedSetupName        = "setup.py"
)

// Stager копирует артефакты зависимостей в staging-каталог.
type Stager struct {
	root string
}

// New создаёт Stager с корневым каталогом. Пустой root — временный
// каталог ОС.
func New(root string) *Stager {
	if root == "" {
		root = filepath.Join(os.TempDir(), "conductor-staging")
	}
	return &Stager{root: root}
}

// Stage раскладывает артефакты job в каталог токена и возвращает имена
// staged-ресурсов. Options без ссылок на артефакты — корректный вход
// с пустым результатом.
func (s *Stager) Stage(ctx context.Context, token string, options map[string]any) ([]string, error) {
	artifacts, err := collectArtifacts(options)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, nil
	}

	dir := filepath.Join(s.root, token)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	staged := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := copyFile(a.source, filepath.Join(dir, a.name)); err != nil {
			return nil, err
		}
		staged = append(staged, a.name)
	}
	return staged, nil
}

// artifact — один файл для staging: источник и имя staged-ресурса.
type artifact struct {
	source string
	name   string
}

// collectArtifacts извлекает ссылки на артефакты из options.
func collectArtifacts(options map[string]any) ([]artifact, error) {
	var artifacts []artifact

	if raw, ok := options[OptRequirementsFile]; ok {
		path, ok := raw.(string)
		if !ok || path == "" {
			return nil, fmt.Errorf("%w: %s must be a non-empty string", ErrMalformedReference, OptRequirementsFile)
		}
		artifacts = append(artifacts, artifact{source: path, name: stagedRequirementsName})
	}

	if raw, ok := options[OptExtraPackages]; ok {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a list", ErrMalformedReference, OptExtraPackages)
		}
		for _, item := range list {
			path, ok := item.(string)
			if !ok || path == "" {
				return nil, fmt.Errorf("%w: %s entries must be non-empty strings", ErrMalformedReference, OptExtraPackages)
			}
			artifacts = append(artifacts, artifact{source: path, name: filepath.Base(path)})
		}
	}

	if raw, ok := options[OptSetupFile]; ok {
		path, ok := raw.(string)
		if !ok || path == "" {
			return nil, fmt.Errorf("%w: %s must be a non-empty string", ErrMalformedReference, OptSetupFile)
		}
		artifacts = append(artifacts, artifact{source: path, name: stagedSetupName})
	}

	return artifacts, nil
}

// copyFile копирует артефакт в staging-каталог.
func copyFile(source, dest string) error {
	in, err := os.Open(source)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissingArtifact, source)
		}
		return fmt.Errorf("open artifact: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create staged file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy artifact: %w", err)
	}
	return out.Close()
}
