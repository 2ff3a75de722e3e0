package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeNotImplemented     ErrorCode = "COMMON_015"
)

// Aliases for backward compatibility
const (
	CodeInternal       = ErrCodeInternal
	CodeInvalidParam   = ErrCodeBadRequest
	CodeNotFound       = ErrCodeNotFound
	CodeConflict       = ErrCodeConflict
	CodeNotImplemented = ErrCodeNotImplemented
	CodeOK             = ErrorCode("OK")

	// Domain specific aliases
	CodeMoleculeInvalidSMILES = ErrCodeMoleculeInvalidSMILES
	CodeScoringConfigInvalid  = ErrCodeScoringConfigInvalid
	CodeRunNotFound           = ErrCodeRunNotFound
)

// Molecule Module Error Codes
const (
	ErrCodeMoleculeInvalidSMILES       ErrorCode = "MOL_001"
	ErrCodeMoleculeEmptyBatch          ErrorCode = "MOL_002"
	ErrCodeMoleculeParsingFailed       ErrorCode = "MOL_003"
	ErrCodeFingerprintGenerationFailed ErrorCode = "MOL_004"
	ErrCodeFingerprintTypeUnsupported  ErrorCode = "MOL_005"
	ErrCodeSimilarityMetricUnsupported ErrorCode = "MOL_006"
	ErrCodeFingerprintLengthMismatch   ErrorCode = "MOL_007"
)

// Scoring Module Error Codes
const (
	ErrCodeScoringConfigInvalid       ErrorCode = "SCORE_001"
	ErrCodeScoringFunctionUnknown     ErrorCode = "SCORE_002"
	ErrCodeComponentTypeUnknown       ErrorCode = "SCORE_003"
	ErrCodeComponentWeightInvalid     ErrorCode = "SCORE_004"
	ErrCodeComponentParamsInvalid     ErrorCode = "SCORE_005"
	ErrCodeTransformTypeUnknown       ErrorCode = "SCORE_006"
	ErrCodeTransformParamsInvalid     ErrorCode = "SCORE_007"
	ErrCodeComponentEvaluationFailed  ErrorCode = "SCORE_008"
	ErrCodeScoringComponentsEmpty     ErrorCode = "SCORE_009"
	ErrCodeReferenceSetEmpty          ErrorCode = "SCORE_010"
	ErrCodeSubstructurePatternInvalid ErrorCode = "SCORE_011"
)

// Run Module Error Codes
const (
	ErrCodeRunConfigInvalid      ErrorCode = "RUN_001"
	ErrCodeRunTypeUnsupported    ErrorCode = "RUN_002"
	ErrCodeRunVersionUnsupported ErrorCode = "RUN_003"
	ErrCodeRunNotFound           ErrorCode = "RUN_004"
	ErrCodeRunAlreadyActive      ErrorCode = "RUN_005"
	ErrCodeRunAborted            ErrorCode = "RUN_006"
	ErrCodeStepRecordInvalid     ErrorCode = "RUN_007"
	ErrCodeArtifactWriteFailed   ErrorCode = "RUN_008"
)

// AI/ML Module Error Codes
const (
	ErrCodeAIModelNotAvailable     ErrorCode = "AI_001"
	ErrCodeAIInferenceFailed       ErrorCode = "AI_002"
	ErrCodeAIModelVersionMismatch  ErrorCode = "AI_003"
	ErrCodeAIInputInvalid          ErrorCode = "AI_004"
	ErrCodeAIResourceExhausted     ErrorCode = "AI_005"
	ErrCodeDockingFailed           ErrorCode = "AI_006"
	ErrCodeDockingRetriesExhausted ErrorCode = "AI_007"
)

// Infrastructure Error Codes (mapped from old names)
const (
	CodeDBConnectionError = ErrCodeDatabaseError
	CodeDatabaseError     = ErrCodeDatabaseError
	CodeDBQueryError      = ErrCodeDatabaseError
	CodeCacheError        = ErrCodeCacheError
	CodeMessageQueueError = ErrCodeInternal
	CodeStorageError      = ErrCodeArtifactWriteFailed
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusInternalServerError,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeMoleculeInvalidSMILES:       http.StatusBadRequest,
	ErrCodeMoleculeEmptyBatch:          http.StatusBadRequest,
	ErrCodeMoleculeParsingFailed:       http.StatusBadRequest,
	ErrCodeFingerprintGenerationFailed: http.StatusInternalServerError,
	ErrCodeFingerprintTypeUnsupported:  http.StatusBadRequest,
	ErrCodeSimilarityMetricUnsupported: http.StatusBadRequest,
	ErrCodeFingerprintLengthMismatch:   http.StatusBadRequest,

	ErrCodeScoringConfigInvalid:       http.StatusBadRequest,
	ErrCodeScoringFunctionUnknown:     http.StatusBadRequest,
	ErrCodeComponentTypeUnknown:       http.StatusBadRequest,
	ErrCodeComponentWeightInvalid:     http.StatusBadRequest,
	ErrCodeComponentParamsInvalid:     http.StatusBadRequest,
	ErrCodeTransformTypeUnknown:       http.StatusBadRequest,
	ErrCodeTransformParamsInvalid:     http.StatusBadRequest,
	ErrCodeComponentEvaluationFailed:  http.StatusInternalServerError,
	ErrCodeScoringComponentsEmpty:     http.StatusBadRequest,
	ErrCodeReferenceSetEmpty:          http.StatusBadRequest,
	ErrCodeSubstructurePatternInvalid: http.StatusBadRequest,

	ErrCodeRunConfigInvalid:      http.StatusBadRequest,
	ErrCodeRunTypeUnsupported:    http.StatusBadRequest,
	ErrCodeRunVersionUnsupported: http.StatusBadRequest,
	ErrCodeRunNotFound:           http.StatusNotFound,
	ErrCodeRunAlreadyActive:      http.StatusConflict,
	ErrCodeRunAborted:            http.StatusConflict,
	ErrCodeStepRecordInvalid:     http.StatusInternalServerError,
	ErrCodeArtifactWriteFailed:   http.StatusInternalServerError,

	ErrCodeAIModelNotAvailable:     http.StatusServiceUnavailable,
	ErrCodeAIInferenceFailed:       http.StatusInternalServerError,
	ErrCodeAIModelVersionMismatch:  http.StatusInternalServerError,
	ErrCodeAIInputInvalid:          http.StatusBadRequest,
	ErrCodeAIResourceExhausted:     http.StatusServiceUnavailable,
	ErrCodeDockingFailed:           http.StatusInternalServerError,
	ErrCodeDockingRetriesExhausted: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeMoleculeInvalidSMILES:       "invalid SMILES format",
	ErrCodeMoleculeEmptyBatch:          "molecule batch is empty",
	ErrCodeMoleculeParsingFailed:       "failed to parse molecule",
	ErrCodeFingerprintGenerationFailed: "failed to generate fingerprint",
	ErrCodeFingerprintTypeUnsupported:  "unsupported fingerprint type",
	ErrCodeSimilarityMetricUnsupported: "unsupported similarity metric",
	ErrCodeFingerprintLengthMismatch:   "fingerprint lengths do not match",

	ErrCodeScoringConfigInvalid:       "invalid scoring function configuration",
	ErrCodeScoringFunctionUnknown:     "unknown scoring function name",
	ErrCodeComponentTypeUnknown:       "unknown scoring component type",
	ErrCodeComponentWeightInvalid:     "component weight must be positive",
	ErrCodeComponentParamsInvalid:     "invalid component parameters",
	ErrCodeTransformTypeUnknown:       "unknown transformation type",
	ErrCodeTransformParamsInvalid:     "invalid transformation parameters",
	ErrCodeComponentEvaluationFailed:  "component evaluation failed",
	ErrCodeScoringComponentsEmpty:     "scoring function has no components",
	ErrCodeReferenceSetEmpty:          "reference molecule set is empty",
	ErrCodeSubstructurePatternInvalid: "invalid substructure pattern",

	ErrCodeRunConfigInvalid:      "invalid run configuration",
	ErrCodeRunTypeUnsupported:    "unsupported run type",
	ErrCodeRunVersionUnsupported: "unsupported configuration version",
	ErrCodeRunNotFound:           "run not found",
	ErrCodeRunAlreadyActive:      "run already active",
	ErrCodeRunAborted:            "run aborted",
	ErrCodeStepRecordInvalid:     "invalid step record",
	ErrCodeArtifactWriteFailed:   "failed to write run artifact",

	ErrCodeAIModelNotAvailable:     "model backend not available",
	ErrCodeAIInferenceFailed:       "model inference failed",
	ErrCodeAIModelVersionMismatch:  "model version mismatch",
	ErrCodeAIInputInvalid:          "invalid input for model",
	ErrCodeAIResourceExhausted:     "inference resource exhausted",
	ErrCodeDockingFailed:           "docking invocation failed",
	ErrCodeDockingRetriesExhausted: "docking retries exhausted",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

//Personal.AI order the ending
