package bwerrors

// Exit codes consumed by the CLI collaborator (§6). Bellwether's core
// never calls os.Exit itself; it only classifies outcomes so a caller can.
const (
	ExitSuccess            = 0
	ExitDrift              = 1
	ExitConfigValidation   = 2
	ExitServerConnection   = 3
	ExitAuthenticationFail = 4
)

// ExitCodeFor maps a terminal error to the exit code an external CLI
// collaborator should use.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch CodeOf(err) {
	case ValidationConfig, ValidationScenario, ValidationWorkflow:
		return ExitConfigValidation
	case TransportConnectionRefused, TransportServerExit, TransportTimeout, TransportProtocolViolation, TransportUnknown:
		return ExitServerConnection
	case TransportAuthFailed, LLMAuth:
		return ExitAuthenticationFail
	default:
		return ExitServerConnection
	}
}
