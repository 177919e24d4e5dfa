package stager

import "errors"

// Ошибки staging.
var (
	// ErrMissingArtifact — артефакт по ссылке из options не существует.
	ErrMissingArtifact = errors.New("staging artifact not found")

	// ErrMalformedReference — ссылка на артефакт имеет неверный тип.
	ErrMalformedReference = errors.New("malformed artifact reference")
)
