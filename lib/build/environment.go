// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"fmt"
	"os"
	"strings"

	"github.com/boldos/bold/lib/recipe"
)

// WriteEnvironment writes the sourceable activate.sh of a hack
// workspace. packages[0] is the main package: the umbrella actions
// (bold_build, bold_install, ...) act on it.
//
// The script defines, for every phase and package, a shell function
// bold_<phase>_<name>_<hash> that runs the phase in the workspace with
// the same DESTDIR and EXT_ variables a system build would use, and
// then restores the caller's working directory and variables.
// bold_deactivate unsets everything the script defined.
func WriteEnvironment(workspace Workspace, packages []recipe.Package) error {
	if len(packages) == 0 {
		return fmt.Errorf("writing hack environment: no packages")
	}
	script := environmentScript(workspace, packages)
	if err := os.WriteFile(workspace.ActivateScript(), []byte(script), 0o755); err != nil {
		return fmt.Errorf("writing hack environment: %w", err)
	}
	return nil
}

func environmentScript(workspace Workspace, packages []recipe.Package) string {
	main := packages[0].Ref.Escaped()
	defined := []string{"BOLD_WORKSPACE"}

	var script strings.Builder
	script.WriteString("#!/bin/echo This script should be sourced in a shell, not executed directly\n")
	fmt.Fprintf(&script, "export BOLD_WORKSPACE=%s\n\n", shellQuote(workspace.Dir))

	for _, phase := range InstallPhases {
		for _, pkg := range packages {
			function := fmt.Sprintf("bold_%s_%s", phase, pkg.Ref.Escaped())
			defined = append(defined, function)

			fmt.Fprintf(&script, "%s() {\n", function)
			script.WriteString("  _bold_oldpwd=$(pwd)\n")
			fmt.Fprintf(&script, "  cd %s || return\n", shellQuote(workspace.Dir))
			fmt.Fprintf(&script, "  export DESTDIR=%s\n", shellQuote(workspace.DestDir(pkg.Ref)))
			script.WriteString("  mkdir -p \"$DESTDIR\"\n")
			externals := pkg.Recipe.ExternalNames()
			for _, local := range externals {
				fmt.Fprintf(&script, "  export EXT_%s=%s\n", local, shellQuote(workspace.ExternalPath(pkg.Ref, local)))
			}
			if phaseSpec, ok := pkg.Recipe.Phases[phase]; ok && strings.TrimSpace(phaseSpec.Cmd) != "" {
				fmt.Fprintf(&script, "  ( %s\n  )\n", phaseSpec.Cmd)
			} else {
				script.WriteString("  :\n")
			}
			script.WriteString("  _bold_status=$?\n")
			script.WriteString("  unset DESTDIR\n")
			for _, local := range externals {
				fmt.Fprintf(&script, "  unset EXT_%s\n", local)
			}
			script.WriteString("  cd \"$_bold_oldpwd\"\n")
			script.WriteString("  unset _bold_oldpwd\n")
			script.WriteString("  return $_bold_status\n")
			script.WriteString("}\n")
		}

		umbrella := fmt.Sprintf("bold_%s", phase)
		defined = append(defined, umbrella)
		fmt.Fprintf(&script, "%s() {\n  bold_%s_%s\n}\n\n", umbrella, phase, main)
	}

	names := make([]string, len(packages))
	for i, pkg := range packages {
		names[i] = pkg.Ref.String()
	}
	defined = append(defined, "bold_help")
	script.WriteString("bold_help() {\n")
	script.WriteString("  echo '** Welcome to the Bold build environment! **'\n")
	fmt.Fprintf(&script, "  echo %s\n", shellQuote("This environment is ready for developing the following packages: "+strings.Join(names, ", ")))
	fmt.Fprintf(&script, "  echo %s\n", shellQuote("Build one package with bold_build_<NAME>, e.g. bold_build_"+main))
	script.WriteString("  echo 'bold_<phase> runs a phase of the main package, e.g. bold_build then bold_install.'\n")
	script.WriteString("  echo 'bold_deactivate removes everything this script defined.'\n")
	script.WriteString("}\n\n")

	defined = append(defined, "bold_deactivate")
	script.WriteString("bold_deactivate() {\n")
	for _, name := range defined {
		if strings.HasPrefix(name, "bold_") {
			fmt.Fprintf(&script, "  unset -f %s\n", name)
		} else {
			fmt.Fprintf(&script, "  unset %s\n", name)
		}
	}
	script.WriteString("}\n")
	return script.String()
}

// shellQuote returns s quoted for a POSIX shell. Strings made only of
// safe characters are returned as-is.
func shellQuote(s string) string {
	safe := s != ""
	for _, char := range s {
		if !isShellSafe(char) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

func isShellSafe(char rune) bool {
	switch {
	case char >= 'a' && char <= 'z', char >= 'A' && char <= 'Z', char >= '0' && char <= '9':
		return true
	}
	switch char {
	case '-', '_', '.', '/', ':', '=', '+', ',', '@':
		return true
	}
	return false
}
