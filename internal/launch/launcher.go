// Package launch implements the Argument Composer (spec.md §4.8): turning
// a resolved VersionDetails plus an instance's configuration into the
// exact JVM command line Minecraft expects, and spawning that process.
// Pipeline staging (Java resolution, downloads, extraction) lives in
// internal/prepare; process lifecycle/log capture lives in
// internal/instance. This package only composes arguments and starts/stops
// the OS process.
package launch

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/quasar/mclauncher-core/internal/config"
	"github.com/quasar/mclauncher-core/internal/core"
	"github.com/quasar/mclauncher-core/internal/modloader"
)

// SessionInfo carries the authenticated (or offline) player identity the
// Argument Composer substitutes into ${auth_*} placeholders.
type SessionInfo struct {
	PlayerName  string
	UUID        string
	AccessToken string
	Offline     bool
}

// Composer builds the full JVM command line for one launch of an
// instance, given its resolved version manifest.
type Composer struct {
	cfg      *config.Config
	inst     *core.Instance
	version  *core.VersionDetails
	session  SessionInfo
	features core.Features
}

// NewComposer creates an argument composer for one launch attempt.
func NewComposer(cfg *config.Config, inst *core.Instance, version *core.VersionDetails, session SessionInfo, features core.Features) *Composer {
	return &Composer{cfg: cfg, inst: inst, version: version, session: session, features: features}
}

// BuildArguments returns the complete argv (minus the java executable
// itself) for this launch: JVM flags, classpath, main class, then game
// arguments, in that order per spec.md §4.8.
func (c *Composer) BuildArguments() []string {
	var args []string

	args = append(args, c.memoryFlags()...)
	if len(c.inst.Config.ExtraJVMArgs) > 0 {
		args = append(args, c.inst.Config.ExtraJVMArgs...)
	} else if len(c.cfg.JVMArgs) > 0 {
		args = append(args, c.cfg.JVMArgs...)
	}

	if runtime.GOOS == "darwin" {
		args = append(args, "-XstartOnFirstThread")
	}

	nativesDir := filepath.Join(c.cfg.NativesDir, c.inst.Shortpath)
	args = append(args, fmt.Sprintf("-Djava.library.path=%s", nativesDir))

	args = append(args, c.buildJVMArguments(nativesDir)...)
	args = append(args, "-cp", c.buildClasspath())
	args = append(args, c.version.MainClass)
	args = append(args, c.buildGameArguments()...)

	return args
}

// memoryFlags renders -Xms/-Xmx from the instance's configured memory
// bounds, falling back to the teacher's historical 512M/2G defaults when
// unset.
func (c *Composer) memoryFlags() []string {
	minMB := c.inst.Config.MemoryMinMB
	maxMB := c.inst.Config.MemoryMaxMB
	if minMB == 0 {
		minMB = 512
	}
	if maxMB == 0 {
		maxMB = 2048
	}
	return []string{
		fmt.Sprintf("-Xms%dM", minMB),
		fmt.Sprintf("-Xmx%dM", maxMB),
	}
}

func (c *Composer) buildJVMArguments(nativesDir string) []string {
	version := c.version
	if version.Arguments == nil || len(version.Arguments.JVM) == 0 {
		return nil
	}

	replacements := c.placeholderMap()
	replacements["${natives_directory}"] = nativesDir
	replacements["${classpath}"] = c.buildClasspath()
	replacements["${launcher_name}"] = "mclauncher-core"
	replacements["${launcher_version}"] = "1.0.0"

	var args []string
	for _, v := range modloader.FilterArguments(version.Arguments.JVM, c.features) {
		args = append(args, c.flattenArgValue(v, replacements)...)
	}
	return args
}

func (c *Composer) buildClasspath() string {
	var paths []string
	version := c.version

	for _, lib := range modloader.FilterLibraries(version.Libraries, c.features) {
		if lib.Downloads == nil || lib.Downloads.Artifact == nil {
			continue
		}
		paths = append(paths, filepath.Join(c.cfg.LibrariesDir, lib.Downloads.Artifact.Path))
	}

	clientPath := filepath.Join(c.cfg.LibrariesDir, "com", "mojang", "minecraft",
		version.ID, fmt.Sprintf("minecraft-%s-client.jar", version.ID))
	paths = append(paths, clientPath)

	separator := ":"
	if runtime.GOOS == "windows" {
		separator = ";"
	}
	return strings.Join(paths, separator)
}

func (c *Composer) buildGameArguments() []string {
	var args []string
	version := c.version
	replacements := c.placeholderMap()

	if version.Arguments != nil && len(version.Arguments.Game) > 0 {
		for _, v := range modloader.FilterArguments(version.Arguments.Game, c.features) {
			args = append(args, c.flattenArgValue(v, replacements)...)
		}
	} else if version.MinecraftArguments != "" {
		// Legacy pre-1.13 format: a single space-joined string, no rules.
		for _, arg := range strings.Split(version.MinecraftArguments, " ") {
			args = append(args, c.replaceVars(arg, replacements))
		}
	}

	if c.inst.Config.ResolutionWidth > 0 && c.inst.Config.ResolutionHeight > 0 {
		args = append(args,
			"--width", strconv.Itoa(c.inst.Config.ResolutionWidth),
			"--height", strconv.Itoa(c.inst.Config.ResolutionHeight),
		)
	}

	return args
}

// placeholderMap builds the full ${...} substitution set the Argument
// Composer fills in, shared by both the JVM and game argument lists.
func (c *Composer) placeholderMap() map[string]string {
	version := c.version
	gameDir := filepath.Join(c.inst.Path)

	uuid := c.session.UUID
	if uuid == "" {
		uuid = "00000000-0000-0000-0000-000000000000"
	}
	token := c.session.AccessToken
	if token == "" {
		token = "0"
	}
	userType := "legacy"
	if !c.session.Offline {
		userType = "msa"
	}
	name := c.session.PlayerName
	if name == "" {
		name = "Player"
	}

	return map[string]string{
		"${auth_player_name}":  name,
		"${version_name}":      version.ID,
		"${game_directory}":    gameDir,
		"${assets_root}":       c.cfg.AssetsDir,
		"${game_assets}":       c.cfg.AssetsDir,
		"${assets_index_name}": version.AssetIndex.ID,
		"${auth_uuid}":         uuid,
		"${auth_access_token}": token,
		"${auth_session}":      token,
		"${user_type}":         userType,
		"${version_type}":      string(version.Type),
		"${user_properties}":   "{}",
	}
}

// flattenArgValue handles Mojang's argument values, which after rule
// filtering are either a single string or (for entries like
// "--width"/"${resolution_width}") a list of strings to append in order.
func (c *Composer) flattenArgValue(v interface{}, replacements map[string]string) []string {
	switch t := v.(type) {
	case string:
		return []string{c.replaceVars(t, replacements)}
	case []interface{}:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, c.replaceVars(s, replacements))
			}
		}
		return out
	default:
		return nil
	}
}

func (c *Composer) replaceVars(s string, replacements map[string]string) string {
	result := s
	for k, v := range replacements {
		result = strings.ReplaceAll(result, k, v)
	}
	return result
}

// Process wraps a started game process and its captured output streams,
// handed back to internal/instance to drive.
type Process struct {
	Cmd    *exec.Cmd
	Stdout io.ReadCloser
	Stderr io.ReadCloser
}

// Spawn starts the Minecraft process for a composed argument list, using
// javaPath as the executable and the instance's directory as the working
// directory. If the instance declares a WrapperCommand (e.g. a sandboxing
// shim), it is prepended to the argv rather than replacing javaPath, so
// the wrapper is itself responsible for invoking java.
func Spawn(ctx context.Context, javaPath string, args []string, inst *core.Instance) (*Process, error) {
	argv := append([]string{javaPath}, args...)
	if wrapper := inst.Config.WrapperCommand; wrapper != "" {
		fields := strings.Fields(wrapper)
		argv = append(fields, argv...)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = inst.Path

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attaching stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("attaching stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting game process: %w", err)
	}

	return &Process{Cmd: cmd, Stdout: stdout, Stderr: stderr}, nil
}
