// Package docpipe analyzes legal PDF documents: text extraction, document
// type detection, type-specific segmentation, citation extraction, and
// plain-language summaries. Results persist through the store package and
// can be exported as an XLSX report.
package docpipe

import "errors"

// Document types the classifier chooses between.
const (
	TypeJudgment = "Court Judgment"
	TypeContract = "Contract/Agreement"
	TypeAct      = "Statute/Act"
	TypeNotice   = "Legal Notice"
	TypePetition = "Petition/Writ"
)

// DocumentTypes is the closed label set for document classification.
var DocumentTypes = []string{TypeJudgment, TypeContract, TypeAct, TypeNotice, TypePetition}

// ContractClauses is the label set for contract paragraph classification.
var ContractClauses = []string{
	"Definitions",
	"Confidentiality",
	"Obligations",
	"Payment Terms",
	"Termination",
	"Dispute Resolution",
	"Miscellaneous",
}

var (
	// ErrExtraction indicates the PDF yielded no usable text.
	ErrExtraction = errors.New("docpipe: text extraction failed")

	// ErrClassification indicates the document type could not be determined.
	ErrClassification = errors.New("docpipe: classification failed")

	// ErrSegmentation indicates the document could not be segmented.
	ErrSegmentation = errors.New("docpipe: segmentation failed")
)

// Segment is one labeled piece of a document.
type Segment struct {
	Label   string `json:"label"`
	Content string `json:"content"`

	// Confidence is set for classified contract clauses.
	Confidence float64 `json:"confidence,omitempty"`
	// SectionNumber is set for statute sections.
	SectionNumber int `json:"section_number,omitempty"`
	// Paragraph is the 1-based source paragraph for contract clauses.
	Paragraph int `json:"paragraph_number,omitempty"`
}
