package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InvoiceRow persists both the raw and the processed payload of a submission.
// The UNIQUE constraint on (vendor_name, invoice_number) is the duplicate
// check the anomaly scorer consumes.
type InvoiceRow struct {
	ID            uuid.UUID  `json:"id"`
	VendorName    string     `json:"vendor_name"`
	InvoiceNumber string     `json:"invoice_number"`
	RawJSON       string     `json:"raw_json"`
	ProcessedJSON string     `json:"processed_json,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// EnsureSchema creates the invoices table if it does not exist.
func EnsureSchema(ctx context.Context) error {
	_, err := Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS invoices (
			id UUID PRIMARY KEY,
			vendor_name TEXT NOT NULL,
			invoice_number TEXT NOT NULL,
			raw_json JSONB NOT NULL,
			processed_json JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ,
			CONSTRAINT uix_vendor_invoice UNIQUE (vendor_name, invoice_number)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure invoices schema: %w", err)
	}
	return nil
}

// InsertRawOrGet inserts a raw submission or returns the existing row id for
// the same (vendor_name, invoice_number). The ON CONFLICT clause makes the
// check atomic with respect to concurrent identical submissions.
// Returns (id, created): created=false marks a duplicate.
func InsertRawOrGet(ctx context.Context, vendorName, invoiceNumber, rawJSON string) (string, bool, error) {
	id := uuid.New()

	var insertedID uuid.UUID
	err := Pool.QueryRow(ctx, `
		INSERT INTO invoices (id, vendor_name, invoice_number, raw_json)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT uix_vendor_invoice DO NOTHING
		RETURNING id
	`, id, vendorName, invoiceNumber, rawJSON).Scan(&insertedID)

	if err == nil {
		return insertedID.String(), true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, fmt.Errorf("failed to insert invoice: %w", err)
	}

	// No row returned: the unique constraint was hit. Fetch the existing id.
	var existingID uuid.UUID
	err = Pool.QueryRow(ctx, `
		SELECT id FROM invoices WHERE vendor_name = $1 AND invoice_number = $2
	`, vendorName, invoiceNumber).Scan(&existingID)
	if err != nil {
		return "", false, fmt.Errorf("failed to fetch existing invoice: %w", err)
	}
	return existingID.String(), false, nil
}

// UpsertProcessed attaches or overwrites the pipeline result for an invoice.
func UpsertProcessed(ctx context.Context, id string, processedJSON string) error {
	_, err := Pool.Exec(ctx, `
		UPDATE invoices SET processed_json = $1, updated_at = $2 WHERE id = $3
	`, processedJSON, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to store processed result: %w", err)
	}
	return nil
}

// GetRaw fetches the raw payload by id.
func GetRaw(ctx context.Context, id string) (string, error) {
	var raw string
	err := Pool.QueryRow(ctx, `SELECT raw_json::text FROM invoices WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		return "", fmt.Errorf("invoice %s not found: %w", id, err)
	}
	return raw, nil
}

// VendorCount is one entry of the top-vendors ranking.
type VendorCount struct {
	Vendor string `json:"vendor"`
	Count  int    `json:"count"`
}

// SummaryReport aggregates stored invoices for dashboards.
type SummaryReport struct {
	Total            int            `json:"total"`
	AnomaliesOver    int            `json:"anomalies_over_0_7"`
	TopVendors       []VendorCount  `json:"top_vendors"`
	MonthlyTotals    map[string]int `json:"monthly_totals"`
	MonthlyAnomalies map[string]int `json:"monthly_anomalies_over_threshold"`
}

// GetSummary builds the aggregate report: totals, high-risk count over the
// threshold, top vendors and per-month breakdowns.
func GetSummary(ctx context.Context, threshold float64) (*SummaryReport, error) {
	rows, err := Pool.Query(ctx, `
		SELECT created_at, vendor_name, COALESCE(processed_json::text, '')
		FROM invoices
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	report := &SummaryReport{
		MonthlyTotals:    map[string]int{},
		MonthlyAnomalies: map[string]int{},
	}
	vendors := map[string]int{}

	for rows.Next() {
		var createdAt time.Time
		var vendor, processed string
		if err := rows.Scan(&createdAt, &vendor, &processed); err != nil {
			return nil, err
		}

		report.Total++
		vendors[vendor]++
		month := createdAt.Format("2006-01")
		report.MonthlyTotals[month]++

		if processed != "" {
			var pj struct {
				FraudScore float64 `json:"fraud_score"`
			}
			// Broken stored JSON is skipped, not fatal to the summary.
			if err := json.Unmarshal([]byte(processed), &pj); err == nil && pj.FraudScore > threshold {
				report.AnomaliesOver++
				report.MonthlyAnomalies[month]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for vendor, count := range vendors {
		report.TopVendors = append(report.TopVendors, VendorCount{Vendor: vendor, Count: count})
	}
	sort.Slice(report.TopVendors, func(i, j int) bool {
		if report.TopVendors[i].Count != report.TopVendors[j].Count {
			return report.TopVendors[i].Count > report.TopVendors[j].Count
		}
		return report.TopVendors[i].Vendor < report.TopVendors[j].Vendor
	})
	if len(report.TopVendors) > 10 {
		report.TopVendors = report.TopVendors[:10]
	}

	return report, nil
}
