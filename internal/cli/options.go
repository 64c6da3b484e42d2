package cli

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Montcharles/germitrack/internal/config"
	"github.com/Montcharles/germitrack/internal/version"
)

// Options holds all CLI flags and arguments.
type Options struct {
	// Input
	ConfigPath string
	Inputs     []string
	Treatment  string // name override for single-table inputs

	// Table layout
	Seeds      int
	DayColumn  string
	RepColumns []string

	// Analysis
	Workers int

	// Output
	OutputDir string
	Formats   []string
	Charts    bool

	// Delivery
	Push string

	LogLevel string
	Version  bool
}

// NewFlagSet returns a configured FlagSet with custom usage/help.
func NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(),
			`%s: germination kinetics analysis

Version: %s

Usage of %s:
`, name, version.Version, name)
		fs.PrintDefaults()
	}
	return fs
}

// ParseArgs registers and parses all flags, returns an Options struct.
// Positional arguments are treated as additional input files.
func ParseArgs(fs *flag.FlagSet, argv []string) (Options, error) {
	var opt Options
	var help bool

	// Input
	fs.StringVar(&opt.ConfigPath, "config", "", "YAML config file (optional)")
	var inputs listValue
	fs.Var(&inputs, "input", "observation file: .xlsx, .csv, .tsv, .txt (repeatable) [*]")
	fs.StringVar(&opt.Treatment, "treatment", "", "treatment name for single-table inputs [sheet name or \"Data\"]")

	// Table layout
	fs.IntVar(&opt.Seeds, "seeds", 0, "seeds sown per replicate (0 = config value) [0]")
	fs.StringVar(&opt.DayColumn, "day-col", "", "day-axis column: header name or #N 1-based index")
	var repCols listValue
	fs.Var(&repCols, "rep-cols", "replicate columns: header names or #N (repeatable or comma-separated)")

	// Analysis
	fs.IntVar(&opt.Workers, "workers", 0, "analysis workers (0 = all CPUs) [0]")

	// Output
	fs.StringVar(&opt.OutputDir, "out", "", "output directory [.]")
	var formats listValue
	fs.Var(&formats, "format", "report format: csv | xlsx | both (repeatable) [csv,xlsx]")
	fs.BoolVar(&opt.Charts, "charts", false, "render PNG germination charts [config value]")

	// Delivery
	fs.StringVar(&opt.Push, "push", "", "germitrackd base URL to push results to (e.g. http://localhost:8080)")

	fs.StringVar(&opt.LogLevel, "log-level", "info", "log level: debug | info | warn | error [info]")
	fs.BoolVar(&opt.Version, "v", false, "print version and exit (shorthand) [false]")
	fs.BoolVar(&opt.Version, "version", false, "print version and exit [false]")
	fs.BoolVar(&help, "h", false, "show this help message (shorthand) [false]")

	if err := fs.Parse(argv); err != nil {
		return opt, err
	}
	if help {
		fs.Usage()
		return opt, flag.ErrHelp
	}
	if opt.Version {
		return opt, nil
	}
	opt.Inputs = append([]string(inputs), fs.Args()...)
	opt.RepColumns = repCols
	opt.Formats = formats

	// Validation
	if len(opt.Inputs) == 0 {
		return opt, errors.New("at least one -input file is required")
	}
	if opt.Seeds < 0 {
		return opt, errors.New("-seeds must be ≥ 0")
	}
	if opt.Workers < 0 {
		return opt, errors.New("-workers must be ≥ 0")
	}
	normalized := make([]string, 0, len(opt.Formats))
	for i, f := range opt.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "csv":
			normalized = append(normalized, "csv")
		case "xlsx":
			normalized = append(normalized, "xlsx")
		case "both":
			normalized = append(normalized, "csv", "xlsx")
		default:
			return opt, fmt.Errorf("invalid -format %q", opt.Formats[i])
		}
	}
	opt.Formats = normalized
	switch opt.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return opt, fmt.Errorf("invalid -log-level %q", opt.LogLevel)
	}
	return opt, nil
}

// Apply overlays the flags the user explicitly set onto the analysis section
// of cfg. Unset flags leave the file (or default) values untouched.
func Apply(fs *flag.FlagSet, opt Options, cfg *config.Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	a := &cfg.Analysis
	if set["seeds"] && opt.Seeds > 0 {
		a.SeedsPerReplicate = opt.Seeds
	}
	if set["day-col"] {
		a.DayColumn = opt.DayColumn
	}
	if set["rep-cols"] {
		a.ReplicateColumns = opt.RepColumns
	}
	if set["workers"] {
		a.Workers = opt.Workers
	}
	if set["out"] {
		a.OutputDir = opt.OutputDir
	}
	if set["format"] {
		a.Formats = opt.Formats
	}
	if set["charts"] {
		a.Charts = opt.Charts
	}
	if set["push"] {
		a.Push.Endpoint = opt.Push
	}
}

// Level maps a -log-level value to its slog.Level.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// listValue allows repeatable flags and comma-separated lists.
type listValue []string

func (s *listValue) String() string { return strings.Join(*s, ",") }

func (s *listValue) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			*s = append(*s, p)
		}
	}
	return nil
}
