package modloader

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Processor is one post-processing step from a Forge/NeoForge install
// profile: a jar to run with java -cp <classpath> <mainClass> <args>,
// with ${variable} placeholders in args resolved against a shared
// substitution map before the process is spawned (binary patching,
// universal jar extraction, and similar installer-time steps Forge moved
// out of its launch wrapper and into the installer itself).
type Processor struct {
	Jar       string
	Classpath []string
	Args      []string
	Outputs   map[string]string // expected output path -> expected sha1; RunProcessors does not read it and never skips a step
}

// RunProcessors executes each processor step in order, substituting
// ${name} placeholders in its args from vars. javaBin is the path to the
// java executable to invoke (the resolved managed or system Java).
func RunProcessors(ctx context.Context, javaBin string, processors []Processor, vars map[string]string) error {
	for i, p := range processors {
		args := make([]string, 0, len(p.Args)+4)
		args = append(args, "-cp", strings.Join(append(append([]string{}, p.Classpath...), p.Jar), classpathSeparator()))
		mainClass, err := jarMainClass(p.Jar)
		if err != nil {
			return fmt.Errorf("post-processor %d: %w", i, err)
		}
		args = append(args, mainClass)
		for _, a := range p.Args {
			args = append(args, substitute(a, vars))
		}

		cmd := exec.CommandContext(ctx, javaBin, args...)
		out, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("post-processor %d (%s) failed: %w: %s", i, filepath.Base(p.Jar), err, string(out))
		}
	}
	return nil
}

func substitute(s string, vars map[string]string) string {
	for k, v := range vars {
		s = strings.ReplaceAll(s, "${"+k+"}", v)
	}
	return s
}

func classpathSeparator() string {
	if isWindows() {
		return ";"
	}
	return ":"
}
