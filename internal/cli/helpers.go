package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"github.com/runnerr0/trail/internal/config"
	"github.com/runnerr0/trail/internal/metrics"
	"github.com/runnerr0/trail/internal/storage"
)

// storeFunc is the body of a command that needs an open Store.
type storeFunc func(ctx context.Context, store *storage.Store, cfg *config.Config) error

// loadConfig reads --config (or the default config file, creating it if
// missing) and applies --dir.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if globals.Config != "" {
		cfg, err = config.LoadOrCreateAt(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		return nil, err
	}
	if globals.Dir != "" {
		cfg.Storage.Dir = globals.Dir
	}
	return cfg, nil
}

// openStore opens the Store of the configured profile directory.
func openStore(ctx context.Context, cfg *config.Config) (*storage.Store, error) {
	dir, err := config.ExpandPath(cfg.Storage.Dir)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, dir, storage.Options{
		FileName:    cfg.Storage.SQLiteFile,
		JournalMode: cfg.Storage.JournalMode,
	})
}

// withStore loads configuration, initializes logging, opens the Store and
// runs fn against it. With --verbose, collected metrics are written to
// stderr afterwards.
func withStore(globals *GlobalFlags, fn storeFunc) error {
	cfg, err := loadConfig(globals)
	if err != nil {
		return err
	}
	if err := config.InitLog(cfg.Logging); err != nil {
		return err
	}
	if globals.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx := context.Background()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := fn(ctx, store, cfg); err != nil {
		return err
	}

	if globals.Verbose {
		return dumpMetrics(os.Stderr)
	}
	return nil
}

// dumpMetrics gathers the trail collectors into a private registry and
// writes every sample to w.
func dumpMetrics(w io.Writer) error {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	writeMetrics(w, families)
	return nil
}

func writeMetrics(w io.Writer, families []*dto.MetricFamily) {
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			name := mf.GetName()
			if len(labels) != 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			fmt.Fprintf(w, "%s %s\n", name, strconv.FormatFloat(m.GetCounter().GetValue(), 'f', -1, 64))
		}
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 's':
		return time.Duration(n) * time.Second, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, m, or s suffix)", s)
	}
}

// sinceMicros converts a --since duration into an exclusive lower bound in
// µs. An empty duration means the beginning of time.
func sinceMicros(s string, now time.Time) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := parseDuration(s)
	if err != nil {
		return 0, err
	}
	return now.Add(-d).UnixMicro(), nil
}

// resolveLimit maps the "unset" flag value to the configured default.
func resolveLimit(flag int, cfg *config.Config) int {
	if flag < 0 {
		return cfg.Query.DefaultLimit
	}
	return flag
}

// formatTime renders a µs timestamp relative to now, e.g. "3 hours ago".
func formatTime(us int64) string {
	return humanize.Time(time.UnixMicro(us))
}

// isoTime renders a µs timestamp for JSON output.
func isoTime(us int64) string {
	return time.UnixMicro(us).UTC().Format(time.RFC3339Nano)
}

// enum is satisfied by the storage event enums.
type enum interface {
	~int
	String() string
}

// parseEnum returns the value among candidates whose String() is s.
func parseEnum[T enum](kind, s string, candidates ...T) (T, error) {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.String() == s {
			return c, nil
		}
		names = append(names, c.String())
	}
	sort.Strings(names)
	var zero T
	return zero, fmt.Errorf("unknown %s %q (want one of %s)", kind, s, strings.Join(names, ", "))
}

func parseVisitType(s string) (storage.VisitType, error) {
	return parseEnum("visit type", s,
		storage.VisitLink, storage.VisitTyped, storage.VisitReload,
		storage.VisitBackForward, storage.VisitRedirect)
}

func parseStartReason(s string) (storage.SessionStartReason, error) {
	return parseEnum("start reason", s,
		storage.StartNew, storage.StartRestore, storage.StartFork, storage.StartNavigate)
}

func parseEndReason(s string) (storage.SessionEndReason, error) {
	return parseEnum("end reason", s, storage.EndClose, storage.EndCrash, storage.EndReplace)
}
