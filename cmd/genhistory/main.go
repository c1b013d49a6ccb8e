// Command genhistory writes a JSON fixture of synthetic microburst detections.
// It drives the same generator and store the monitor uses, so the output has
// the ordering, identifiers and continent labels of a real session.
//
// Usage:
//
//	go run ./cmd/genhistory --count 50 --seed 7 \
//	  --now 2024-04-26T15:00:00Z -o data/mock/detections.json
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-json"

	"github.com/couchcryptid/microburst-monitor/internal/domain"
	"github.com/couchcryptid/microburst-monitor/internal/store"
	"github.com/couchcryptid/microburst-monitor/internal/synthetic"
)

// CLI holds the command line flags.
type CLI struct {
	Count     int       `default:"20" help:"Number of detections to generate."`
	Seed      uint64    `default:"1" help:"Random seed. 0 picks a random seed."`
	Now       time.Time `help:"End of the 24h history window (RFC 3339). Defaults to the current time."`
	Continent string    `default:"all" help:"Only write detections on this continent."`
	Severity  string    `default:"all" help:"Only write detections of this severity."`
	Output    string    `short:"o" default:"-" help:"Output file, or - for stdout."`
}

// Fixture is the document written by genhistory.
type Fixture struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Seed        uint64               `json:"seed"`
	Stats       domain.SeverityStats `json:"stats"`
	Detections  []domain.Detection   `json:"detections"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("genhistory"),
		kong.Description("Generate a JSON fixture of synthetic microburst detections."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(cli.Run())
}

// Run generates the fixture and writes it to the configured output.
func (c *CLI) Run() error {
	w := io.Writer(os.Stdout)
	if c.Output != "-" {
		f, err := os.Create(c.Output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	return c.generate(w)
}

func (c *CLI) generate(w io.Writer) error {
	if c.Count < 0 {
		return fmt.Errorf("count must not be negative, got %d", c.Count)
	}
	filter, err := domain.ParseFilter(c.Continent, c.Severity, domain.All)
	if err != nil {
		return err
	}
	now := c.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	cfg := synthetic.DefaultConfig()
	cfg.Seed = c.Seed
	st := store.New()
	gen, err := synthetic.NewGenerator(cfg, st, domain.BoundingBoxClassifier{}, slog.Default())
	if err != nil {
		return err
	}
	gen.Seed(c.Count, now)

	data, err := json.MarshalIndent(Fixture{
		GeneratedAt: now,
		Seed:        c.Seed,
		Stats:       st.StatsBySeverity(filter),
		Detections:  st.Query(filter),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	return nil
}
