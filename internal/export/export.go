// Package export writes position history to CSV or JSON files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/lp-monitor/internal/storage"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format         ExportFormat
	StartTime      time.Time
	EndTime        time.Time
	OnlyOutOfRange bool
	OutputDir      string
}

// SnapshotExporter writes the snapshot history of one position
type SnapshotExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewSnapshotExporter(logger *zap.Logger) *SnapshotExporter {
	return &SnapshotExporter{
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ExportSnapshots filters records, sorts them oldest first and writes them
// to a new file in options.OutputDir. It returns the file path.
func (se *SnapshotExporter) ExportSnapshots(positionID int64, records []storage.SnapshotRecord, options ExportOptions) (string, error) {
	filtered := se.filterRecords(records, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no snapshots of position %d match the export criteria", positionID)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].RecordedAt.Before(filtered[j].RecordedAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, se.generateFilename(positionID, options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = se.exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = se.exportToJSON(positionID, filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	se.logger.Info("Snapshots exported",
		zap.Int64("position_id", positionID),
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func (se *SnapshotExporter) filterRecords(records []storage.SnapshotRecord, options ExportOptions) []storage.SnapshotRecord {
	var filtered []storage.SnapshotRecord
	for _, r := range records {
		if !options.StartTime.IsZero() && r.RecordedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && r.RecordedAt.After(options.EndTime) {
			continue
		}
		if options.OnlyOutOfRange && r.Snapshot.InRange() {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func (se *SnapshotExporter) generateFilename(positionID int64, options ExportOptions) string {
	return fmt.Sprintf("position_%d_%s.%s", positionID, se.now().Format("20060102_150405"), options.Format)
}

// CSVHeaders is the header row of the CSV export.
func CSVHeaders() []string {
	return []string{
		"recorded_at", "block", "pair",
		"tick_left", "tick_curr", "tick_right", "in_range",
		"liquidity_token0", "liquidity_token1", "fees_token0", "fees_token1",
		"token0_usd", "token1_usd", "value_usd",
	}
}

func recordToCSV(r storage.SnapshotRecord) []string {
	s := r.Snapshot
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		r.RecordedAt.UTC().Format(time.RFC3339),
		strconv.FormatUint(s.BlockNumber, 10),
		s.Pair,
		strconv.Itoa(s.TickLeft),
		strconv.Itoa(s.TickCurr),
		strconv.Itoa(s.TickRight),
		strconv.FormatBool(s.InRange()),
		f(s.LiquidityToken0), f(s.LiquidityToken1),
		f(s.FeesToken0), f(s.FeesToken1),
		f(r.Rates.Token0USD), f(r.Rates.Token1USD),
		f(valueUSD(r)),
	}
}

func valueUSD(r storage.SnapshotRecord) float64 {
	return r.Snapshot.TotalToken0()*r.Rates.Token0USD + r.Snapshot.TotalToken1()*r.Rates.Token1USD
}

func (se *SnapshotExporter) exportToCSV(records []storage.SnapshotRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(recordToCSV(r)); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (se *SnapshotExporter) exportToJSON(positionID int64, records []storage.SnapshotRecord, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time                `json:"export_time"`
		PositionID int64                    `json:"position_id"`
		Summary    ExportSummary            `json:"summary"`
		Snapshots  []storage.SnapshotRecord `json:"snapshots"`
	}{
		ExportTime: se.now().UTC(),
		PositionID: positionID,
		Summary:    CalculateSummary(records),
		Snapshots:  records,
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics of exported snapshots
type ExportSummary struct {
	SnapshotCount  int       `json:"snapshot_count"`
	InRangeCount   int       `json:"in_range_count"`
	InRangePct     float64   `json:"in_range_pct"`
	MinValueUSD    float64   `json:"min_value_usd"`
	MaxValueUSD    float64   `json:"max_value_usd"`
	LatestValueUSD float64   `json:"latest_value_usd"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
}

// CalculateSummary summarizes records sorted oldest first.
func CalculateSummary(records []storage.SnapshotRecord) ExportSummary {
	summary := ExportSummary{SnapshotCount: len(records)}
	if len(records) == 0 {
		return summary
	}

	summary.StartDate = records[0].RecordedAt
	summary.EndDate = records[len(records)-1].RecordedAt
	summary.MinValueUSD = valueUSD(records[0])

	for _, r := range records {
		v := valueUSD(r)
		if v < summary.MinValueUSD {
			summary.MinValueUSD = v
		}
		if v > summary.MaxValueUSD {
			summary.MaxValueUSD = v
		}
		if r.Snapshot.InRange() {
			summary.InRangeCount++
		}
	}
	summary.LatestValueUSD = valueUSD(records[len(records)-1])
	summary.InRangePct = float64(summary.InRangeCount) / float64(summary.SnapshotCount) * 100
	return summary
}
