// Package investigate diagnoses charges in the marts fact table that lost
// their hospital dimension key.
package investigate

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/vitebski/claims-ops/internal/expectations"
	"github.com/vitebski/claims-ops/internal/utils"
)

const nullKeyStatsQuery = `
SELECT
    COUNT(*) AS total_rows,
    COUNT(hospital_key) AS rows_with_hospital_key,
    COUNT(*) - COUNT(hospital_key) AS rows_with_null_hospital_key,
    ROUND((COUNT(*) - COUNT(hospital_key)) * 100.0 / NULLIF(COUNT(*), 0), 2) AS pct_null
FROM raw_marts.fct_inpatient_charges`

const nullKeyRowsQuery = `
SELECT
    hospital_id,
    drg_code,
    charge_key,
    total_discharges,
    avg_covered_charges
FROM raw_marts.fct_inpatient_charges
WHERE hospital_key IS NULL
LIMIT %d`

const missingFromDimQuery = `
SELECT
    c.hospital_id,
    CASE
        WHEN h.facility_id IS NOT NULL THEN 'EXISTS in dim_hospitals'
        ELSE 'MISSING from dim_hospitals'
    END AS status,
    COUNT(*) AS charge_record_count
FROM raw_marts.fct_inpatient_charges c
LEFT JOIN raw_marts.dim_hospitals h
    ON c.hospital_id = h.facility_id
    AND h.is_current = TRUE
WHERE c.hospital_key IS NULL
GROUP BY c.hospital_id, h.facility_id
ORDER BY charge_record_count DESC
LIMIT 20`

const hospitalCountsQuery = `
SELECT 'Charges table' AS source, COUNT(DISTINCT hospital_id) AS unique_hospital_ids
FROM raw_marts.fct_inpatient_charges
UNION ALL
SELECT 'dim_hospitals (current)' AS source, COUNT(DISTINCT facility_id) AS unique_hospital_ids
FROM raw_marts.dim_hospitals
WHERE is_current = TRUE
UNION ALL
SELECT 'Charges with NULL hospital_key' AS source, COUNT(DISTINCT hospital_id) AS unique_hospital_ids
FROM raw_marts.fct_inpatient_charges
WHERE hospital_key IS NULL`

const sourceHospitalsQuery = `
WITH missing_hospitals AS (
    SELECT DISTINCT hospital_id
    FROM raw_marts.fct_inpatient_charges
    WHERE hospital_key IS NULL
)
SELECT
    m.hospital_id,
    CASE
        WHEN s.facility_id IS NOT NULL THEN 'EXISTS in stg_hospitals'
        ELSE 'MISSING from stg_hospitals (not in source data)'
    END AS source_status,
    s.facility_name,
    s.state,
    COUNT(DISTINCT c.charge_key) AS charge_records
FROM missing_hospitals m
LEFT JOIN raw_staging.stg_hospitals s
    ON m.hospital_id = s.facility_id
LEFT JOIN raw_marts.fct_inpatient_charges c
    ON m.hospital_id = c.hospital_id
    AND c.hospital_key IS NULL
GROUP BY m.hospital_id, s.facility_id, s.facility_name, s.state
ORDER BY charge_records DESC
LIMIT 30`

// Querier runs diagnostic SQL
type Querier interface {
	ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error)
}

// NullKeyStats summarises missing hospital keys in the fact table
type NullKeyStats struct {
	TotalRows   int64
	WithKey     int64
	NullKey     int64
	PercentNull float64
}

// NullKeyRow is a fact row without a hospital key
type NullKeyRow struct {
	HospitalID        string
	DRGCode           string
	ChargeKey         string
	TotalDischarges   int64
	AvgCoveredCharges float64
}

// HospitalStatus tells whether an orphaned hospital id exists in a reference table
type HospitalStatus struct {
	HospitalID    string
	Status        string
	ChargeRecords int64
	FacilityName  string
	State         string
}

// Exists reports whether the hospital was found
func (h HospitalStatus) Exists() bool {
	return strings.Contains(h.Status, "EXISTS")
}

// SourceCount is the distinct hospital count of one source
type SourceCount struct {
	Source    string
	Hospitals int64
}

// Investigator runs diagnostics against the warehouse
type Investigator struct {
	Warehouse Querier
	Out       io.Writer
	Logger    *logrus.Logger
}

// NewInvestigator creates an Investigator
func NewInvestigator(q Querier, out io.Writer, logger *logrus.Logger) *Investigator {
	return &Investigator{Warehouse: q, Out: out, Logger: logger}
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func integer(v interface{}) int64 {
	n, err := expectations.ToInt64(v)
	if err != nil {
		return 0
	}
	return n
}

func float(v interface{}) float64 {
	f, err := expectations.ToFloat(v)
	if err != nil {
		return 0
	}
	return f
}

// NullHospitalKeyStats counts fact rows with and without a hospital key
func (inv *Investigator) NullHospitalKeyStats(ctx context.Context) (NullKeyStats, error) {
	rows, err := inv.Warehouse.ExecuteQuery(ctx, nullKeyStatsQuery)
	if err != nil {
		return NullKeyStats{}, fmt.Errorf("query null hospital_key stats: %w", err)
	}
	if len(rows) == 0 {
		return NullKeyStats{}, nil
	}
	r := rows[0]
	return NullKeyStats{
		TotalRows:   integer(r["total_rows"]),
		WithKey:     integer(r["rows_with_hospital_key"]),
		NullKey:     integer(r["rows_with_null_hospital_key"]),
		PercentNull: float(r["pct_null"]),
	}, nil
}

// SampleNullHospitalKeyRows returns up to limit fact rows without a hospital key
func (inv *Investigator) SampleNullHospitalKeyRows(ctx context.Context, limit int) ([]NullKeyRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := inv.Warehouse.ExecuteQuery(ctx, fmt.Sprintf(nullKeyRowsQuery, limit))
	if err != nil {
		return nil, fmt.Errorf("query null hospital_key rows: %w", err)
	}
	out := make([]NullKeyRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, NullKeyRow{
			HospitalID:        str(r["hospital_id"]),
			DRGCode:           str(r["drg_code"]),
			ChargeKey:         str(r["charge_key"]),
			TotalDischarges:   integer(r["total_discharges"]),
			AvgCoveredCharges: float(r["avg_covered_charges"]),
		})
	}
	return out, nil
}

// MissingFromDimHospitals checks orphaned hospital ids against the current hospital dimension
func (inv *Investigator) MissingFromDimHospitals(ctx context.Context) ([]HospitalStatus, error) {
	rows, err := inv.Warehouse.ExecuteQuery(ctx, missingFromDimQuery)
	if err != nil {
		return nil, fmt.Errorf("query dim_hospitals matches: %w", err)
	}
	out := make([]HospitalStatus, 0, len(rows))
	for _, r := range rows {
		out = append(out, HospitalStatus{
			HospitalID:    str(r["hospital_id"]),
			Status:        str(r["status"]),
			ChargeRecords: integer(r["charge_record_count"]),
		})
	}
	return out, nil
}

// HospitalIDCounts compares distinct hospital ids across the fact and dimension tables
func (inv *Investigator) HospitalIDCounts(ctx context.Context) ([]SourceCount, error) {
	rows, err := inv.Warehouse.ExecuteQuery(ctx, hospitalCountsQuery)
	if err != nil {
		return nil, fmt.Errorf("query hospital id counts: %w", err)
	}
	out := make([]SourceCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, SourceCount{Source: str(r["source"]), Hospitals: integer(r["unique_hospital_ids"])})
	}
	return out, nil
}

// CheckSourceHospitals looks orphaned hospital ids up in the staging source
func (inv *Investigator) CheckSourceHospitals(ctx context.Context) ([]HospitalStatus, error) {
	rows, err := inv.Warehouse.ExecuteQuery(ctx, sourceHospitalsQuery)
	if err != nil {
		return nil, fmt.Errorf("query stg_hospitals matches: %w", err)
	}
	out := make([]HospitalStatus, 0, len(rows))
	for _, r := range rows {
		out = append(out, HospitalStatus{
			HospitalID:    str(r["hospital_id"]),
			Status:        str(r["source_status"]),
			FacilityName:  str(r["facility_name"]),
			State:         str(r["state"]),
			ChargeRecords: integer(r["charge_records"]),
		})
	}
	return out, nil
}

func (inv *Investigator) printStats(s NullKeyStats) {
	fmt.Fprintf(inv.Out, "Total rows: %s\n", humanize.Comma(s.TotalRows))
	fmt.Fprintf(inv.Out, "Rows with hospital_key: %s\n", humanize.Comma(s.WithKey))
	fmt.Fprintf(inv.Out, "Rows with NULL hospital_key: %s\n", humanize.Comma(s.NullKey))
	fmt.Fprintf(inv.Out, "Percentage NULL: %.2f%%\n", s.PercentNull)
}

func (inv *Investigator) printSample(rows []NullKeyRow) {
	if len(rows) == 0 {
		fmt.Fprintln(inv.Out, "No NULL hospital_key values found!")
		return
	}
	fmt.Fprintf(inv.Out, "%-15s %-10s %-15s %-20s\n", "hospital_id", "drg_code", "total_discharges", "avg_covered_charges")
	fmt.Fprintln(inv.Out, strings.Repeat("-", 60))
	for _, r := range rows {
		fmt.Fprintf(inv.Out, "%-15s %-10s %-15d $%s\n", r.HospitalID, r.DRGCode, r.TotalDischarges, humanize.CommafWithDigits(r.AvgCoveredCharges, 2))
	}
}

// Nulls reports how many fact rows lack a hospital key, with a sample
func (inv *Investigator) Nulls(ctx context.Context) error {
	utils.PrintBanner(inv.Out, "Investigate hospital_key NULL Values")

	stats, err := inv.NullHospitalKeyStats(ctx)
	if err != nil {
		return err
	}
	inv.printStats(stats)

	if stats.NullKey > 0 {
		rows, err := inv.SampleNullHospitalKeyRows(ctx, 10)
		if err != nil {
			return err
		}
		fmt.Fprintln(inv.Out, "\nSample rows with NULL hospital_key:")
		inv.printSample(rows)
		fmt.Fprintln(inv.Out, "\nPossible causes:")
		fmt.Fprintln(inv.Out, "  1. LEFT JOIN in fct_inpatient_charges allows NULLs")
		fmt.Fprintln(inv.Out, "  2. hospital_id in charges doesn't match facility_id in dim_hospitals")
		fmt.Fprintln(inv.Out, "  3. dim_hospitals WHERE is_current = TRUE filters out some hospitals")
	}
	return nil
}

// MissingHospitals runs the full orphaned-hospital analysis against the marts
func (inv *Investigator) MissingHospitals(ctx context.Context) error {
	utils.PrintBanner(inv.Out, "1. NULL hospital_key Statistics")
	stats, err := inv.NullHospitalKeyStats(ctx)
	if err != nil {
		return err
	}
	inv.printStats(stats)

	fmt.Fprintln(inv.Out)
	utils.PrintBanner(inv.Out, "2. Sample Rows with NULL hospital_key")
	sample, err := inv.SampleNullHospitalKeyRows(ctx, 10)
	if err != nil {
		return err
	}
	inv.printSample(sample)

	fmt.Fprintln(inv.Out)
	utils.PrintBanner(inv.Out, "3. Hospital IDs Missing from dim_hospitals")
	missing, err := inv.MissingFromDimHospitals(ctx)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		fmt.Fprintln(inv.Out, "All hospital_ids exist in dim_hospitals!")
	} else {
		fmt.Fprintf(inv.Out, "%-15s %-30s %-15s\n", "hospital_id", "Status", "Charge Records")
		fmt.Fprintln(inv.Out, strings.Repeat("-", 60))
		for _, h := range missing {
			fmt.Fprintf(inv.Out, "%-15s %-30s %s\n", h.HospitalID, h.Status, humanize.Comma(h.ChargeRecords))
		}
	}

	fmt.Fprintln(inv.Out)
	utils.PrintBanner(inv.Out, "4. Hospital ID Counts Comparison")
	counts, err := inv.HospitalIDCounts(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(inv.Out, "%-35s %-20s\n", "Source", "Unique Hospital IDs")
	fmt.Fprintln(inv.Out, strings.Repeat("-", 55))
	for _, c := range counts {
		fmt.Fprintf(inv.Out, "%-35s %s\n", c.Source, humanize.Comma(c.Hospitals))
	}

	fmt.Fprintln(inv.Out)
	utils.PrintNextSteps(inv.Out,
		"Review which hospital_ids are missing",
		"Check if they exist in source data (stg_hospitals)",
		"Add missing hospitals to dim_hospitals if they should exist",
		"Or adjust expectation to allow NULLs if orphaned records are acceptable",
	)
	return nil
}

// SourceHospitals checks whether orphaned hospitals were dropped by the
// dimension build or never existed in the source extract
func (inv *Investigator) SourceHospitals(ctx context.Context) error {
	utils.PrintBanner(inv.Out, "Check Missing Hospitals in Source Data")
	fmt.Fprintln(inv.Out, "Checking if missing hospital_ids exist in stg_hospitals...")
	fmt.Fprintln(inv.Out)

	hospitals, err := inv.CheckSourceHospitals(ctx)
	if err != nil {
		return err
	}
	if len(hospitals) == 0 {
		fmt.Fprintln(inv.Out, "No missing hospitals found!")
		return nil
	}

	fmt.Fprintf(inv.Out, "%-12s %-35s %-40s %-6s %-10s\n", "hospital_id", "Source Status", "Facility Name", "State", "Records")
	fmt.Fprintln(inv.Out, strings.Repeat("-", 110))
	exists, missing := 0, 0
	for _, h := range hospitals {
		if h.Exists() {
			exists++
		} else {
			missing++
		}
		name, state := h.FacilityName, h.State
		if name == "" {
			name = "N/A"
		}
		if state == "" {
			state = "N/A"
		}
		fmt.Fprintf(inv.Out, "%-12s %-35s %-40s %-6s %-10d\n", h.HospitalID, h.Status, utils.Truncate(name, 38), state, h.ChargeRecords)
	}

	fmt.Fprintln(inv.Out)
	utils.PrintBanner(inv.Out, "Summary")
	fmt.Fprintf(inv.Out, "Hospitals that EXIST in stg_hospitals: %d\n", exists)
	fmt.Fprintf(inv.Out, "Hospitals MISSING from stg_hospitals: %d\n", missing)

	if exists > 0 {
		fmt.Fprintln(inv.Out, "\n⚠️  ISSUE FOUND:")
		fmt.Fprintln(inv.Out, "   Some hospitals exist in stg_hospitals but not in dim_hospitals!")
		fmt.Fprintln(inv.Out, "   They were likely filtered out during dim_hospitals creation")
		fmt.Fprintln(inv.Out, "   (data quality filters, SCD type 2 logic or the is_current filter).")
	}
	if missing > 0 {
		fmt.Fprintln(inv.Out, "\nNOTE:")
		fmt.Fprintln(inv.Out, "   Some hospitals don't exist in source data at all.")
		fmt.Fprintln(inv.Out, "   These are orphaned records: charges without hospital info.")
	}
	return nil
}
