package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edgecomet/loadstats/internal/common/compress"
	"github.com/edgecomet/loadstats/internal/common/configtypes"
	"github.com/edgecomet/loadstats/pkg/types"
)

// Encode writes report to w in format (yaml or json)
func Encode(w io.Writer, report *Report, format string) error {
	switch format {
	case types.FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode yaml report: %w", err)
		}
		return enc.Close()
	case types.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode json report: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
}

// Write encodes and compresses report according to cfg. An empty cfg.Path
// writes to stdout. Returns the path written, with the compression extension.
func Write(report *Report, cfg configtypes.OutputConfig, stdout io.Writer) (string, error) {
	if cfg.Path == "" {
		return "", writeTo(stdout, report, cfg)
	}

	path := compress.WithExt(cfg.Path, cfg.Compression)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	if err := writeTo(f, report, cfg); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close report file: %w", err)
	}
	return path, nil
}

func writeTo(w io.Writer, report *Report, cfg configtypes.OutputConfig) error {
	cw, err := compress.NewWriter(w, cfg.Compression)
	if err != nil {
		return err
	}
	if err := Encode(cw, report, cfg.Format); err != nil {
		_ = cw.Close()
		return err
	}
	return cw.Close()
}
