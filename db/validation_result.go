package db

import (
	"fmt"
	"time"

	"github.com/pyneda/openeoct/lib"
	"github.com/pyneda/openeoct/pkg/runner"
	"gorm.io/datatypes"
)

// ValidationResult stores one compliance run report as JSON.
type ValidationResult struct {
	BaseUUIDModel
	BackendID  string                            `gorm:"size:255;index;not null" json:"backend_id"`
	BackendURL string                            `gorm:"type:text" json:"backend_url"`
	APIVersion string                            `gorm:"size:50" json:"api_version"`
	State      string                            `gorm:"size:20;index" json:"state"`
	StartedAt  time.Time                         `json:"started_at"`
	FinishedAt time.Time                         `json:"finished_at"`
	Report     datatypes.JSONType[runner.Report] `json:"-"`
}

func (v ValidationResult) TableHeaders() []string {
	return []string{"ID", "Backend", "API Version", "State", "Started", "Duration"}
}

func (v ValidationResult) TableRow() []string {
	return []string{
		v.ID.String()[:8],
		v.BackendID,
		v.APIVersion,
		v.State,
		v.StartedAt.Format(time.RFC3339),
		v.FinishedAt.Sub(v.StartedAt).Round(time.Millisecond).String(),
	}
}

func (v ValidationResult) String() string {
	return fmt.Sprintf("ID: %s, Backend: %s, State: %s, Started: %s", v.ID, v.BackendID, v.State, v.StartedAt.Format(time.RFC3339))
}

func (v ValidationResult) Pretty() string {
	return fmt.Sprintf(
		"%sID:%s %s\n%sBackend:%s %s\n%sAPI Version:%s %s\n%sState:%s %s\n%sStarted:%s %s\n",
		lib.Blue, lib.ResetColor, v.ID,
		lib.Blue, lib.ResetColor, v.BackendID,
		lib.Blue, lib.ResetColor, v.APIVersion,
		lib.Blue, lib.ResetColor, v.State,
		lib.Blue, lib.ResetColor, v.StartedAt.Format(time.RFC3339),
	)
}

// Decode returns the stored report.
func (v ValidationResult) Decode() (*runner.Report, error) {
	report := v.Report.Data()
	if report.BackendID == "" {
		return nil, fmt.Errorf("stored result %s has no report", v.ID)
	}
	return &report, nil
}

// SaveReport stores a compliance run report.
func (d *DatabaseConnection) SaveReport(report *runner.Report) (*ValidationResult, error) {
	result := &ValidationResult{
		BackendID:  report.BackendID,
		BackendURL: report.BackendURL,
		APIVersion: report.APIVersion,
		State:      string(report.State),
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Report:     datatypes.NewJSONType(*report),
	}
	if err := d.db.Create(result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ValidationResultFilter narrows ListValidationResults.
type ValidationResultFilter struct {
	BackendID  string
	State      string
	Pagination Pagination
}

// ListValidationResults returns stored results, most recent first, and the
// total count matching the filter.
func (d *DatabaseConnection) ListValidationResults(filter ValidationResultFilter) ([]ValidationResult, int64, error) {
	query := d.db.Model(&ValidationResult{})
	if filter.BackendID != "" {
		query = query.Where("backend_id = ?", filter.BackendID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := filter.Pagination.GetData()
	var results []ValidationResult
	err := query.Order("started_at desc").Offset(offset).Limit(limit).Find(&results).Error
	return results, count, err
}

// GetValidationResult loads one stored result.
func (d *DatabaseConnection) GetValidationResult(id string) (*ValidationResult, error) {
	var result ValidationResult
	if err := d.db.Where("id = ?", id).First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}
