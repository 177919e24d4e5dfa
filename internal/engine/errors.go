package engine

import "errors"

// Ошибки движков.
var (
	// ErrBadPipeline — pipeline не разбирается как граф трансформов.
	ErrBadPipeline = errors.New("malformed pipeline")

	// ErrUnknownTransform — тип трансформа не зарегистрирован.
	ErrUnknownTransform = errors.New("unknown transform type")

	// ErrTransformFailed — трансформ сообщил об ошибке выполнения.
	ErrTransformFailed = errors.New("transform failed")
)
