package reporting

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/auth"
)

// MeasureDefinition defines a reporting measure with its SQL query.
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"sql"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available reporting measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "sample-throughput",
		Name:        "Sample Throughput by Status",
		Description: "Number of samples grouped by workflow status",
		SQL:         `SELECT status, COUNT(*) AS total FROM sample GROUP BY status ORDER BY total DESC`,
		Parameters:  []string{},
	},
	{
		ID:          "qc-pass-rate",
		Name:        "QC Pass Rate by Parameter",
		Description: "Quality control pass and fail counts grouped by test parameter",
		SQL: `SELECT p.name AS parameter, qm.status, COUNT(*) AS total
FROM qc_metrics qm
JOIN test_assignment ta ON ta.id = qm.assignment_id
JOIN parameter p ON p.id = ta.parameter_id
GROUP BY p.name, qm.status
ORDER BY p.name, qm.status`,
		Parameters: []string{},
	},
	{
		ID:          "turnaround-time",
		Name:        "Average Turnaround per Parameter",
		Description: "Average hours between assignment start and result recording, by parameter",
		SQL: `SELECT p.name AS parameter,
	ROUND(AVG(EXTRACT(EPOCH FROM (tr.recorded_at - ta.started_at)) / 3600)::numeric, 1) AS avg_hours
FROM test_result tr
JOIN test_assignment ta ON ta.id = tr.assignment_id
JOIN parameter p ON p.id = ta.parameter_id
WHERE ta.started_at IS NOT NULL
GROUP BY p.name
ORDER BY p.name`,
		Parameters: []string{},
	},
	{
		ID:          "reagent-stock",
		Name:        "Reagent Stock Levels",
		Description: "Current reagent quantities with a low-stock flag against the reorder level",
		SQL: `SELECT name, batch_number, number_of_containers,
	(number_of_containers * quantity_per_container) AS total_quantity, unit, low_stock_threshold,
	(number_of_containers <= low_stock_threshold) AS low_stock
FROM reagent
ORDER BY low_stock DESC, name`,
		Parameters: []string{},
	},
	{
		ID:          "samples-per-client",
		Name:        "Samples per Client",
		Description: "Number of samples submitted by each client",
		SQL: `SELECT c.name AS client, COUNT(s.id) AS total
FROM sample s
JOIN client c ON c.id = s.client_id
GROUP BY c.name
ORDER BY total DESC`,
		Parameters: []string{},
	},
	{
		ID:          "certificates-released",
		Name:        "Certificates Released by Month",
		Description: "Count of released certificates of analysis grouped by month",
		SQL: `SELECT TO_CHAR(released_at, 'YYYY-MM') AS month, COUNT(*) AS total
FROM certificate
WHERE status = 'released'
GROUP BY month
ORDER BY month`,
		Parameters: []string{},
	},
}

// Handler provides HTTP handlers for the reporting API.
type Handler struct {
	pool *pgxpool.Pool
}

// NewHandler creates a new reporting handler.
func NewHandler(pool *pgxpool.Pool) *Handler {
	return &Handler{pool: pool}
}

// RegisterRoutes registers the reporting API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	reportGroup := api.Group("/reports", auth.RequireRole("admin", "manager"))
	reportGroup.GET("/measures", h.ListMeasures)
	reportGroup.GET("/measures/:id/evaluate", h.EvaluateMeasure)
	reportGroup.GET("/measures/:id/export", h.ExportMeasureCSV)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measureID := c.Param("id")

	measure := FindMeasure(measureID)
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	// Collect parameters from query string
	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	report := MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now(),
		Results:     results,
		Parameters:  params,
	}

	return c.JSON(http.StatusOK, report)
}

// ExportMeasureCSV executes a measure's SQL and streams the results as CSV.
func (h *Handler) ExportMeasureCSV(c echo.Context) error {
	measureID := c.Param("id")

	measure := FindMeasure(measureID)
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	var sb strings.Builder
	if err := WriteCSV(&sb, results); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("csv encode failed: %v", err))
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%s.csv`, measure.ID))
	return c.Blob(http.StatusOK, "text/csv", []byte(sb.String()))
}

// WriteCSV renders a result set as CSV with a stable, sorted header row.
func WriteCSV(w *strings.Builder, results []map[string]interface{}) error {
	cw := csv.NewWriter(w)

	if len(results) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := make([]string, 0, len(results[0]))
	for k := range results[0] {
		header = append(header, k)
	}
	sort.Strings(header)

	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range results {
		record := make([]string, len(header))
		for i, col := range header {
			if v := row[col]; v != nil {
				record[i] = fmt.Sprintf("%v", v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := h.pool.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	var results []map[string]interface{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[string(fd.Name)] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]interface{}{}
	}

	return results, nil
}

// FindMeasure looks up a measure by ID, useful for testing.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
