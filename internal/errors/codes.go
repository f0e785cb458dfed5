package errors

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL_ERROR"
	CodeConfigValidation Code = "CONFIG_VALIDATION_ERROR"
	CodeConfigReadError  Code = "CONFIG_READ_ERROR"
	CodeConfigParseError Code = "CONFIG_PARSE_ERROR"

	// Pre-flight failures abort the run before any apply is attempted.
	CodePreflightError    Code = "PREFLIGHT_ERROR"
	CodeCLINotFound       Code = "CLI_NOT_FOUND"
	CodePlatformAuthError Code = "PLATFORM_AUTH_ERROR"
	CodeWorkspaceNotFound Code = "WORKSPACE_NOT_FOUND"

	// Definition loading and validation.
	CodeDefinitionError     Code = "DEFINITION_ERROR"
	CodeDuplicateDefinition Code = "DUPLICATE_DEFINITION"

	// Control-plane interaction.
	CodePlatformAPIError Code = "PLATFORM_API_ERROR"
	CodeResourceNotFound Code = "RESOURCE_NOT_FOUND"
	CodeLookupTimeout    Code = "LOOKUP_TIMEOUT"
	CodeApplyError       Code = "APPLY_ERROR"
	CodeBenignConflict   Code = "BENIGN_CONFLICT"

	// Reporting.
	CodeExportError Code = "EXPORT_ERROR"
)

func (c Code) String() string {
	return string(c)
}
