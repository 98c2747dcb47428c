package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusKindMeta = [...]struct {
	label string
	color string
}{
	statusInfo:  {label: "INFO", color: ansiBlue},
	statusOK:    {label: "OK", color: ansiGreen},
	statusWarn:  {label: "WARN", color: ansiYellow},
	statusError: {label: "ERROR", color: ansiRed},
}

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	meta := statusKindMeta[statusInfo]
	if int(kind) >= 0 && int(kind) < len(statusKindMeta) {
		meta = statusKindMeta[kind]
	}
	body := "[" + meta.label + "]"
	if message != "" {
		body += " " + message
	}
	line := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", body)
	if colorize && meta.color != "" {
		return meta.color + line + ansiReset
	}
	return line
}

func renderSectionHeader(title string, colorize bool) []string {
	line := strings.TrimSpace(title)
	rule := strings.Repeat("=", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
