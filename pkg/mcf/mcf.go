// Package mcf implements the Model Container File format.
//
// MCF is a single-file, memory-mappable container for trained models. A file
// is a fixed header, a run of 8-byte aligned section payloads and a trailing
// section directory. It describes structure and data only; interpreting the
// payloads is up to the caller.
package mcf

// MCF global constants must never change.
const (
	// MagicMCF is the file magic, encoded as "MCF\0".
	MagicMCF = "MCF\x00"

	// CurrentMajor changes only with breaking format changes.
	CurrentMajor uint16 = 1

	// CurrentMinor may add optional sections or fields.
	CurrentMinor uint16 = 0

	// FlagTensorDataAligned64 marks files whose tensor payloads start on
	// 64-byte boundaries.
	FlagTensorDataAligned64 uint64 = 1 << 0
)

type SectionType uint32

const (
	SectionModelInfo   SectionType = 0x0001
	SectionVocabulary  SectionType = 0x0002
	SectionTensorIndex SectionType = 0x0003
	SectionTensorData  SectionType = 0x0004
)

func (t SectionType) String() string {
	switch t {
	case SectionModelInfo:
		return "model_info"
	case SectionVocabulary:
		return "vocabulary"
	case SectionTensorIndex:
		return "tensor_index"
	case SectionTensorData:
		return "tensor_data"
	default:
		return "unknown"
	}
}
