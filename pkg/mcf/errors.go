package mcf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid MCF magic")
	ErrUnsupportedMajor = errors.New("unsupported MCF major version")
	ErrCorruptFile      = errors.New("corrupt MCF file")
	ErrDuplicateSection = errors.New("mcf: duplicate section type")
	ErrSectionNotFound  = errors.New("mcf: section not found")
	ErrTensorNotFound   = errors.New("mcf: tensor not found")
	ErrWriterClosed     = errors.New("mcf: writer already finalised")
)
