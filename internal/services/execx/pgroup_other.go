//go:build !unix

package execx

import "os/exec"

func configureProcessGroup(*exec.Cmd) {}
