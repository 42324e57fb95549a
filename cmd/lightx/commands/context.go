package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"imagejobs/internal/infra"
	"imagejobs/internal/service"
)

// AppContext is what every command action receives after setup.
type AppContext struct {
	*service.Services
	Out io.Writer
}

// NewAppContext loads configuration from the --env file and wires the job
// core. The order ledger is opened only when DATABASE_URL is set.
func NewAppContext(ctx context.Context, cmd *cli.Command) (*AppContext, error) {
	cfg, err := infra.LoadConfig(cmd.String("env"))
	if err != nil {
		return nil, err
	}
	logger := infra.NewLogger(cfg.AppEnv)
	if cmd.Bool("quiet") {
		logger = logger.Level(zerolog.WarnLevel)
	}
	svc, err := service.New(ctx, cfg, logger, service.Options{})
	if err != nil {
		return nil, err
	}
	return &AppContext{Services: svc, Out: output(cmd)}, nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAssignments turns repeated key=value flags into a map. Later
// assignments of the same key win.
func parseAssignments(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, raw := range values {
		key, value, ok := strings.Cut(raw, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--%s %q: expected key=value", flag, raw)
		}
		out[key] = value
	}
	return out, nil
}
