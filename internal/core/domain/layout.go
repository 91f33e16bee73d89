package domain

import "path/filepath"

const (
	// SettingsFileName is the name of the project settings file. Its directory is
	// the project root.
	SettingsFileName = "yabu.yaml"

	// DefaultBuildfile is the name of the Buildfile if the settings do not name one.
	DefaultBuildfile = "Buildfile"

	// DefaultStateFile is the name of the state file, relative to the project root.
	DefaultStateFile = ".yabu.state"

	// EnvFileName is the dotenv file loaded from the project root.
	EnvFileName = ".env"

	// CfgDirEnv names the environment variable overriding the global config directory.
	CfgDirEnv = "YABU_CFG_DIR"

	// DefaultCfgDirName is the global config directory below the home directory.
	DefaultCfgDirName = ".yabu"

	// AuthDirName is the token directory below the global config directory.
	AuthDirName = "auth"

	// DefaultPort is the build server's TCP port.
	DefaultPort = 6789

	// DefaultShell runs script chunks.
	DefaultShell = "/bin/sh"

	// DefaultPath is the PATH handed to every job.
	DefaultPath = "/usr/local/bin:/usr/bin:/bin"

	// MaxSelectDepth bounds the nesting of source selection.
	MaxSelectDepth = 50

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600

	// ExecFilePerm is the permission of interpreter script files (rwxr-xr-x).
	ExecFilePerm = 0o755
)

// AuthPath returns the token file of user below cfgDir.
func AuthPath(cfgDir, user string) string {
	return filepath.Join(cfgDir, AuthDirName, user)
}
