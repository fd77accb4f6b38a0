package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/dap4/internal/ceerr"
	"github.com/roach88/dap4/internal/chunk"
	"github.com/roach88/dap4/internal/dmr"
	"github.com/roach88/dap4/internal/dmrcue"
	"github.com/roach88/dap4/internal/generator"
)

// Error codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeReadFailed  = "E008" // File read error
	ErrCodeConfig      = "E009" // Invalid configuration

	// Dataset model errors
	ErrCodeModel     = "E100" // Invalid dataset model
	ErrCodeModelDims = "E101" // Invalid or undefined dimension
	ErrCodeModelType = "E102" // Invalid type or enumeration
	ErrCodeModelAttr = "E103" // Invalid attribute

	// Constraint errors, one per ceerr kind
	ErrCodeSyntax         = "E201"
	ErrCodeNameResolution = "E202"
	ErrCodeType           = "E203"
	ErrCodeRange          = "E204"
	ErrCodeSemantic       = "E205"

	// Response errors
	ErrCodeRowsExceeded = "E301" // Sequence over the row limit
	ErrCodeResponse     = "E302" // Response carried an ERROR chunk
	ErrCodeData         = "E303" // Data source failed
)

// LoadError represents an error that occurred while loading an input file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// loadDataset compiles the CUE dataset model at path.
func loadDataset(path string) (*dmr.Dataset, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("dataset model not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing dataset model: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("dataset model is a directory: %s", path)}
	}

	ds, err := dmrcue.Load(path)
	if err != nil {
		var compileErr *dmrcue.CompileError
		if errors.As(err, &compileErr) {
			return nil, &LoadError{
				Code:    MapFieldToErrorCode(compileErr.Field),
				Message: compileErr.Field + ": " + compileErr.Message,
				Pos:     compileErr.Pos,
			}
		}
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}
	return ds, nil
}

// MapFieldToErrorCode maps the field path of a model error to an error code.
// Paths look like "dataset.variables.a.dims".
func MapFieldToErrorCode(field string) string {
	segs := strings.Split(field, ".")
	if slices.Contains(segs, "attributes") {
		return ErrCodeModelAttr
	}
	for i := len(segs) - 1; i >= 0; i-- {
		switch segs[i] {
		case "cue":
			return ErrCodeBuildFailed
		case "dims", "dimensions":
			return ErrCodeModelDims
		case "type", "enum", "basetype", "consts", "enumerations":
			return ErrCodeModelType
		}
	}
	return ErrCodeModel
}

// errorCode classifies err for output.
func errorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			return loadErr.Code, fmt.Sprintf("%s:%d:%d: %s",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), loadErr.Message)
		}
		return loadErr.Code, loadErr.Message
	}
	var respErr *chunk.ResponseError
	if errors.As(err, &respErr) {
		return ErrCodeResponse, respErr.Message
	}
	if generator.IsRowsExceededError(err) {
		return ErrCodeRowsExceeded, err.Error()
	}
	switch ceerr.KindOf(err) {
	case ceerr.KindSyntax:
		return ErrCodeSyntax, err.Error()
	case ceerr.KindNameResolution:
		return ErrCodeNameResolution, err.Error()
	case ceerr.KindType:
		return ErrCodeType, err.Error()
	case ceerr.KindRange:
		return ErrCodeRange, err.Error()
	case ceerr.KindSemantic:
		return ErrCodeSemantic, err.Error()
	}
	return ErrCodeGeneric, err.Error()
}

// errorDetails returns the source position of a model error, if any.
func errorDetails(err error) any {
	var loadErr *LoadError
	if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
		return map[string]any{
			"file":   loadErr.Pos.Filename(),
			"line":   loadErr.Pos.Line(),
			"column": loadErr.Pos.Column(),
		}
	}
	var ce *ceerr.Error
	if errors.As(err, &ce) && ce.Name != "" {
		return map[string]any{"kind": string(ce.Kind), "name": ce.Name}
	}
	return nil
}
