package session

import (
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultSSHBinary = "ssh"
	DefaultTerm      = "xterm-256color"
)

// Launcher turns a host record into the command that opens its shell.
type Launcher interface {
	Command(h Host, size Size) (Command, error)
}

// SSHLauncher runs the system ssh client with a forced remote TTY.
type SSHLauncher struct {
	Binary     string   // defaults to "ssh"
	Options    []string // extra -o values
	Term       string   // TERM for the client, defaults to xterm-256color
	DefaultKey string   // used when the host names no key
}

func (l *SSHLauncher) sshArgs(h Host) []string {
	var args []string
	key := h.Key
	if key == "" {
		key = l.DefaultKey
	}
	if key != "" {
		args = append(args, "-i", key)
	}
	args = append(args,
		"-o", "StrictHostKeyChecking=accept-new",
		"-o", "ServerAliveInterval=30",
		"-o", "ServerAliveCountMax=3",
	)
	for _, opt := range l.Options {
		args = append(args, "-o", opt)
	}
	args = append(args, "-t")
	if h.Port != 0 {
		args = append(args, "-p", strconv.Itoa(h.Port))
	}
	args = append(args, h.Target())
	return args
}

func (l *SSHLauncher) Command(h Host, size Size) (Command, error) {
	if h.Address == "" {
		return Command{}, fmt.Errorf("host %q has no address", h.Name)
	}
	bin := l.Binary
	if bin == "" {
		bin = DefaultSSHBinary
	}
	return Command{
		Path: bin,
		Args: l.sshArgs(h),
		Env:  termEnv(l.Term, size),
	}, nil
}

// LocalLauncher runs a login shell on this machine.
type LocalLauncher struct {
	Shell string // defaults to $SHELL, then /bin/sh
	Term  string
}

func (l *LocalLauncher) Command(h Host, size Size) (Command, error) {
	shell := l.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	dir, _ := os.UserHomeDir()
	return Command{
		Path: shell,
		Args: []string{"-l"},
		Env:  termEnv(l.Term, size),
		Dir:  dir,
	}, nil
}

// Dispatch sends hosts without an address to Local and the rest to Remote.
type Dispatch struct {
	Local  Launcher
	Remote Launcher
}

func (d Dispatch) Command(h Host, size Size) (Command, error) {
	if h.Address == "" {
		if d.Local == nil {
			return Command{}, fmt.Errorf("host %q has no address", h.Name)
		}
		return d.Local.Command(h, size)
	}
	return d.Remote.Command(h, size)
}

func termEnv(term string, size Size) []string {
	if term == "" {
		term = DefaultTerm
	}
	return []string{
		"TERM=" + term,
		"COLUMNS=" + strconv.Itoa(size.Cols),
		"LINES=" + strconv.Itoa(size.Rows),
	}
}
