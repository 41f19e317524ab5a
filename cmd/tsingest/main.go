// Command tsingest pulls telemetry from a ThingSpeak channel, optionally
// applies a calibration to one column, and exports the result as CSV or to
// InfluxDB.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sensorlab/telemetry-ingest/internal/config"
	"github.com/sensorlab/telemetry-ingest/pkg/calibrate"
	"github.com/sensorlab/telemetry-ingest/pkg/export"
	"github.com/sensorlab/telemetry-ingest/pkg/feed"
	"github.com/sensorlab/telemetry-ingest/pkg/logging"
	"github.com/sensorlab/telemetry-ingest/pkg/pagination"
	"github.com/sensorlab/telemetry-ingest/pkg/thingspeak"
)

func main() {
	var (
		channelID   = flag.Int64("channel", 0, "channel ID to read (overrides THINGSPEAK_CHANNEL_ID)")
		results     = flag.Int("results", feed.DefaultResults, "number of records to fetch")
		startStr    = flag.String("start", "", "start of time range (YYYY-MM-DD HH:MM:SS, UTC)")
		endStr      = flag.String("end", "", "end of time range (YYYY-MM-DD HH:MM:SS, UTC)")
		calSpec     = flag.String("calibrate", "", `calibration spec: "<column>=<one|two|three>:<measured>,<truth>[;...]"`)
		outPath     = flag.String("out", "-", "CSV output path, - for stdout")
		toInflux    = flag.Bool("influx", false, "export to InfluxDB instead of CSV")
		measurement = flag.String("measurement", "telemetry", "InfluxDB measurement name")
		metricsAddr = flag.String("metrics-addr", "", "optional address to serve Prometheus metrics on")
		timeout     = flag.Duration("timeout", 5*time.Minute, "overall fetch timeout")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	if *channelID == 0 {
		*channelID = cfg.ChannelID
	}
	if *channelID == 0 {
		fmt.Fprintln(os.Stderr, "channel ID is required (-channel or THINGSPEAK_CHANNEL_ID)")
		os.Exit(1)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("Metrics listener failed")
			}
		}()
	}

	if err := run(cfg, *channelID, *results, *startStr, *endStr, *calSpec, *outPath, *toInflux, *measurement, *timeout); err != nil {
		log.Error().Err(err).Msg("Ingestion failed")
		os.Exit(1)
	}
}

func run(cfg config.Config, channelID int64, results int, startStr, endStr, calSpec, outPath string, toInflux bool, measurement string, timeout time.Duration) error {
	opts := feed.Options{APIKey: cfg.APIKey}

	var err error
	if startStr != "" {
		opts.Start, err = parseTimestamp(startStr)
		if err != nil {
			return fmt.Errorf("parse -start: %w", err)
		}
	}
	if endStr != "" {
		opts.End, err = parseTimestamp(endStr)
		if err != nil {
			return fmt.Errorf("parse -end: %w", err)
		}
	}

	transportCfg := thingspeak.DefaultConfig()
	if cfg.BaseURL != "" {
		transportCfg.BaseURL = cfg.BaseURL
	}
	transport, err := thingspeak.New(transportCfg)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}

	fetcher := feed.NewFetcher(transport)
	paginator := pagination.New(fetcher, pagination.DefaultConfig())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	series, err := paginator.FetchSeries(ctx, channelID, results, opts)
	if err != nil {
		return err
	}
	if series.Len() < results {
		log.Warn().
			Int("requested", results).
			Int("records", series.Len()).
			Msg("Upstream history exhausted, result is partial")
	}

	frame := series.Frame()

	if calSpec != "" {
		column, model, err := parseCalibration(calSpec)
		if err != nil {
			return fmt.Errorf("parse -calibrate: %w", err)
		}
		if err := calibrate.Apply(frame, column, model); err != nil {
			return err
		}
		log.Info().
			Str("column", column).
			Stringer("kind", model.Kind()).
			Msg("Calibration applied")
	}

	if toInflux {
		if err := cfg.ValidateInflux(); err != nil {
			return err
		}
		writer := export.NewInfluxWriter(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		defer writer.Close()
		tags := map[string]string{"channel_id": strconv.FormatInt(channelID, 10)}
		return writer.WriteFrame(ctx, measurement, tags, frame)
	}

	out := os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}
	return export.WriteCSV(out, frame)
}

// parseTimestamp parses a CLI time bound in the service's timestamp syntax.
func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(feed.TimestampFormat, s, time.UTC)
}

// parseCalibration parses a calibration spec of the form
// "<column>=<kind>:<measured>,<truth>[;<measured>,<truth>[;...]]", e.g.
// "Temp (C)=one:98.2,100" or "pH=three:4,4.01;7,6.86;10,9.18".
func parseCalibration(spec string) (string, calibrate.Model, error) {
	column, rest, ok := strings.Cut(spec, "=")
	if !ok || column == "" {
		return "", calibrate.Model{}, fmt.Errorf("expected <column>=<kind>:<points>, got %q", spec)
	}

	kind, pointsStr, ok := strings.Cut(rest, ":")
	if !ok {
		return "", calibrate.Model{}, fmt.Errorf("expected <kind>:<points>, got %q", rest)
	}

	var points []calibrate.ReferencePoint
	for _, pair := range strings.Split(pointsStr, ";") {
		mStr, tStr, ok := strings.Cut(pair, ",")
		if !ok {
			return "", calibrate.Model{}, fmt.Errorf("expected <measured>,<truth>, got %q", pair)
		}
		measured, err := strconv.ParseFloat(strings.TrimSpace(mStr), 64)
		if err != nil {
			return "", calibrate.Model{}, fmt.Errorf("parse measured value %q: %w", mStr, err)
		}
		truth, err := strconv.ParseFloat(strings.TrimSpace(tStr), 64)
		if err != nil {
			return "", calibrate.Model{}, fmt.Errorf("parse truth value %q: %w", tStr, err)
		}
		points = append(points, calibrate.ReferencePoint{Measured: measured, Truth: truth})
	}

	var model calibrate.Model
	var err error
	switch kind {
	case "one":
		if len(points) != 1 {
			return "", calibrate.Model{}, fmt.Errorf("one-point calibration needs 1 reference point, got %d", len(points))
		}
		model = calibrate.OnePoint(points[0])
	case "two":
		if len(points) != 2 {
			return "", calibrate.Model{}, fmt.Errorf("two-point calibration needs 2 reference points, got %d", len(points))
		}
		model, err = calibrate.TwoPoint(points[0], points[1])
	case "three":
		if len(points) != 3 {
			return "", calibrate.Model{}, fmt.Errorf("three-point calibration needs 3 reference points, got %d", len(points))
		}
		model, err = calibrate.ThreePoint(points[0], points[1], points[2])
	default:
		return "", calibrate.Model{}, fmt.Errorf("unknown calibration kind %q (want one, two, or three)", kind)
	}
	if err != nil {
		return "", calibrate.Model{}, err
	}

	return column, model, nil
}
