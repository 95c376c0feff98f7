package lib

import "github.com/fatih/color"

// ANSI color codes
const (
	ResetColor = "\033[0m"

	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	White  = "\033[37m"
)

var (
	passColor = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
)

// Pass renders a passing verdict.
func Pass(text string) string { return passColor.Sprint(text) }

// Fail renders a failing verdict.
func Fail(text string) string { return failColor.Sprint(text) }

// Warn renders a verdict that neither passes nor fails.
func Warn(text string) string { return warnColor.Sprint(text) }
