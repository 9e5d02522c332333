package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/pulmoprobe/platform/pkg/common/models"
)

const Filename = "PulmoProbe_Report.csv"

var header = []string{"PatientID", "Age", "CancerStage", "Prediction", "ConfidenceScore", "Date"}

// WriteCSV exports the given ledger snapshot in its order, one row per record.
func WriteCSV(w io.Writer, records []models.PredictionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, record := range records {
		row := []string{
			record.ID,
			string(record.Inputs.Age),
			record.Inputs.CancerStage,
			record.Outcome.Risk,
			record.Outcome.Confidence,
			record.CreatedAt.Format("2006-01-02"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing report row %s: %w", record.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
