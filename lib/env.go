package lib

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// ExpandValue resolves values of the form "$NAME" from the environment.
// Unset or empty variables leave the raw value in place.
func ExpandValue(value string) string {
	name, ok := strings.CutPrefix(value, "$")
	if !ok || name == "" {
		return value
	}
	resolved := os.Getenv(name)
	if resolved == "" {
		log.Warn().Str("variable", name).Msg("Environment variable does not exist or is empty, using raw value")
		return value
	}
	return resolved
}
