package domain

import "go.trai.ch/zerr"

var (
	// ErrCircularDependency is reported when a target is reached again while its sources are being selected.
	ErrCircularDependency = zerr.New("circular dependency")

	// ErrAmbiguousRules is reported when two rules with a script match a target with the same score.
	ErrAmbiguousRules = zerr.New("ambiguous rules")

	// ErrNoRule is reported when a target is missing or outdated and no rule can build it.
	ErrNoRule = zerr.New("no applicable rule")

	// ErrNonRegularLeaf is reported when a leaf target exists but is not a regular file.
	ErrNonRegularLeaf = zerr.New("leaf target is not a regular file")

	// ErrTargetExists is reported when a create-only rule would overwrite an existing target.
	ErrTargetExists = zerr.New("target already exists")

	// ErrTargetNotBuilt is reported when a build script succeeds without creating its target.
	ErrTargetNotBuilt = zerr.New("script did not create the target")

	// ErrScriptFailed is reported when a build or auto-depend script fails.
	ErrScriptFailed = zerr.New("script failed")

	// ErrTooManyWarnings is reported when the warning budget is exhausted.
	ErrTooManyWarnings = zerr.New("too many warnings")

	// ErrIllegalTransition signals a broken state machine invariant.
	ErrIllegalTransition = zerr.New("illegal state transition")

	// ErrInternal is returned when a build aborts on a broken invariant.
	ErrInternal = zerr.New("internal error")

	// ErrBuildFailed is returned when at least one target failed or was cancelled.
	ErrBuildFailed = zerr.New("build failed")

	// ErrUndefined is reported for an undefined variable or placeholder.
	ErrUndefined = zerr.New("undefined")

	// ErrMissingDigit is reported when a bare placeholder is used with more than one captured value.
	ErrMissingDigit = zerr.New("placeholder needs a digit")

	// ErrTransformNoMatch is reported when a ':' transformation does not match a word.
	ErrTransformNoMatch = zerr.New("transformation pattern does not match")

	// ErrUnbalanced is reported for unbalanced parentheses, brackets or braces.
	ErrUnbalanced = zerr.New("unbalanced delimiter")

	// ErrSyntax is reported for malformed Buildfile statements.
	ErrSyntax = zerr.New("syntax error")

	// ErrInvalidOption is reported for unknown options in a configuration string.
	ErrInvalidOption = zerr.New("invalid option")

	// ErrInvalidTimestampAlgorithm is reported for an unknown timestamp algorithm name.
	ErrInvalidTimestampAlgorithm = zerr.New("invalid timestamp algorithm, expected 'mt', 'mtid' or 'cksum'")

	// ErrStateFileRequired is reported when a non-mtime algorithm is used without a state file.
	ErrStateFileRequired = zerr.New("timestamp algorithm requires the state file")

	// ErrStateFileInvalid is reported when the state file header is missing or wrong.
	ErrStateFileInvalid = zerr.New("invalid state file")

	// ErrStateReadFailed is returned when the state file cannot be read.
	ErrStateReadFailed = zerr.New("failed to read state file")

	// ErrStateWriteFailed is returned when the state file cannot be written.
	ErrStateWriteFailed = zerr.New("failed to write state file")

	// ErrArchiveFormat is reported for a malformed ar archive.
	ErrArchiveFormat = zerr.New("malformed archive")

	// ErrConfigReadFailed is returned when a settings file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read settings file")

	// ErrConfigParseFailed is returned when a settings file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse settings file")

	// ErrBuildfileNotFound is returned when the Buildfile does not exist.
	ErrBuildfileNotFound = zerr.New("buildfile not found")

	// ErrFrameTooLarge is returned when a protocol payload exceeds the 24-bit length field.
	ErrFrameTooLarge = zerr.New("frame payload too large")

	// ErrProtocol is reported for malformed or unexpected protocol frames.
	ErrProtocol = zerr.New("protocol violation")

	// ErrLoginFailed is reported when a build server rejects the login.
	ErrLoginFailed = zerr.New("login failed")

	// ErrConnectionLost is reported when a build server connection closes.
	ErrConnectionLost = zerr.New("connection lost")

	// ErrSpawnFailed is returned when a job process cannot be started.
	ErrSpawnFailed = zerr.New("failed to start job")

	// ErrInvalidOutputMode is returned for an unknown --output-mode value.
	ErrInvalidOutputMode = zerr.New("invalid output mode, expected 'auto', 'progress' or 'linear'")

	// ErrServerNotConfigured is returned when serve finds no matching server entry in the settings.
	ErrServerNotConfigured = zerr.New("no build server configured for this host")
)
