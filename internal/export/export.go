package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txpipe/internal/transaction"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat returns the export format named by s.
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format    ExportFormat
	OutputDir string
	// OnlyConfirmed drops receipts that never reached the requested commitment.
	OnlyConfirmed bool
}

// ReceiptExporter writes submission receipts to disk.
type ReceiptExporter struct {
	logger *zap.Logger
}

// NewReceiptExporter creates a new receipt exporter
func NewReceiptExporter(logger *zap.Logger) *ReceiptExporter {
	return &ReceiptExporter{
		logger: logger.Named("receipt-exporter"),
	}
}

// ExportReceipts writes receipts in the requested format and returns the file path.
func (re *ReceiptExporter) ExportReceipts(receipts []*transaction.Receipt, options ExportOptions) (string, error) {
	filtered := filterReceipts(receipts, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no receipts match the export criteria")
	}

	outputPath := filepath.Join(options.OutputDir, generateFilename(options))
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	re.logger.Info("Receipts exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterReceipts(receipts []*transaction.Receipt, options ExportOptions) []*transaction.Receipt {
	var filtered []*transaction.Receipt
	for _, r := range receipts {
		if r == nil {
			continue
		}
		if options.OnlyConfirmed && r.Status == nil {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

func generateFilename(options ExportOptions) string {
	return fmt.Sprintf("receipts_%s.%s", time.Now().Format("20060102_150405"), options.Format)
}

// CSVHeaders returns the column names of the attempt-level CSV export.
func CSVHeaders() []string {
	return []string{"signature", "attempt", "started_at", "commitment", "skip_preflight", "outcome", "error", "final_status", "slot"}
}

func attemptRow(r *transaction.Receipt, a transaction.Attempt) []string {
	errText := ""
	if a.Err != nil {
		errText = a.Err.Error()
	}
	finalStatus, slot := "", ""
	if r.Status != nil {
		finalStatus = r.Status.Status
		slot = strconv.FormatUint(r.Status.Slot, 10)
	}
	return []string{
		r.Signature.String(),
		strconv.Itoa(a.Number),
		a.StartedAt.UTC().Format(time.RFC3339Nano),
		string(a.Commitment),
		strconv.FormatBool(a.SkipPreflight),
		string(a.Outcome),
		errText,
		finalStatus,
		slot,
	}
}

// exportToCSV writes one row per send attempt.
func exportToCSV(receipts []*transaction.Receipt, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range receipts {
		for _, a := range r.Attempts {
			if err := writer.Write(attemptRow(r, a)); err != nil {
				return fmt.Errorf("failed to write attempt: %w", err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func exportToJSON(receipts []*transaction.Receipt, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime   time.Time              `json:"export_time"`
		ReceiptCount int                    `json:"receipt_count"`
		Receipts     []*transaction.Receipt `json:"receipts"`
		Summary      ExportSummary          `json:"summary"`
	}{
		ExportTime:   time.Now(),
		ReceiptCount: len(receipts),
		Receipts:     receipts,
		Summary:      CalculateSummary(receipts),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported receipts
type ExportSummary struct {
	TotalReceipts int                         `json:"total_receipts"`
	Confirmed     int                         `json:"confirmed"`
	TotalAttempts int                         `json:"total_attempts"`
	Retried       int                         `json:"retried"`
	Outcomes      map[transaction.Outcome]int `json:"outcomes"`
	AvgAttempts   float64                     `json:"avg_attempts"`
}

// CalculateSummary aggregates attempt outcomes across receipts.
func CalculateSummary(receipts []*transaction.Receipt) ExportSummary {
	summary := ExportSummary{
		TotalReceipts: len(receipts),
		Outcomes:      make(map[transaction.Outcome]int),
	}
	for _, r := range receipts {
		if r.Status != nil {
			summary.Confirmed++
		}
		if len(r.Attempts) > 1 {
			summary.Retried++
		}
		summary.TotalAttempts += len(r.Attempts)
		for _, a := range r.Attempts {
			summary.Outcomes[a.Outcome]++
		}
	}
	if summary.TotalReceipts > 0 {
		summary.AvgAttempts = float64(summary.TotalAttempts) / float64(summary.TotalReceipts)
	}
	return summary
}
