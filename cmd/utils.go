package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/pyneda/openeoct/db"
	"github.com/pyneda/openeoct/internal/config"
	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/capabilities"
	"github.com/pyneda/openeoct/pkg/registry"
	"github.com/pyneda/openeoct/pkg/spec"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// commandContext is cancelled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func specStore() *spec.Store {
	return spec.NewStore(viper.GetString("spec.directory"), spec.WithPattern(viper.GetString("spec.pattern")))
}

func capabilitiesClient() *capabilities.Client {
	return capabilities.NewClient(config.Seconds("capabilities.timeout"))
}

// storedRegistry loads one backend from the database.
func storedRegistry(backendID string) (*registry.Registry, error) {
	reg := registry.New()
	if err := db.Connection().LoadBackend(reg, backendID); err != nil {
		return nil, err
	}
	return reg, nil
}

// readFragment parses a configuration file, taking the format from its extension.
func readFragment(path string) (*registry.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	format := registry.FormatTOML
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		if parsed, err := registry.ParseFormat(ext); err == nil {
			format = parsed
		}
	}
	return registry.ParseFragment(data, format)
}

func printFormatted[T lib.Formattable](items []T, format string) {
	formatType, err := lib.ParseFormatType(format)
	if err != nil {
		log.Error().Err(err).Msg("Invalid format")
		os.Exit(1)
	}
	out, err := lib.FormatOutput(items, formatType)
	if err != nil {
		log.Error().Err(err).Msg("Error formatting output")
		os.Exit(1)
	}
	fmt.Println(out)
}

func printSingle[T lib.Formattable](item T, format string) {
	formatType, err := lib.ParseFormatType(format)
	if err != nil {
		log.Error().Err(err).Msg("Invalid format")
		os.Exit(1)
	}
	out, err := lib.FormatSingleOutput(item, formatType)
	if err != nil {
		log.Error().Err(err).Msg("Error formatting output")
		os.Exit(1)
	}
	fmt.Println(out)
}
