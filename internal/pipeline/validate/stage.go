// Package validate is stage 4: deterministic consistency rules over an
// extracted record. The stage never fails; inconsistencies become report
// entries. All rules are evaluated without short-circuiting so a single run
// yields the exhaustive report.
package validate

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/joseph-ayodele/invoice-pipeline/constants"
	"github.com/joseph-ayodele/invoice-pipeline/internal/common"
	"github.com/joseph-ayodele/invoice-pipeline/internal/entity"
)

// DefaultTolerance is the allowed deviation for arithmetic checks, in
// currency units.
const DefaultTolerance = 0.01

type Stage struct {
	Tolerance float64
	Logger    *slog.Logger
}

func NewStage(tolerance float64, logger *slog.Logger) *Stage {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{Tolerance: tolerance, Logger: logger}
}

// Validate applies the full rule set and returns the report. Re-running on
// the same record yields an identical report.
func (s *Stage) Validate(record entity.ExtractedRecord) entity.ValidationReport {
	var issues []entity.Issue

	issues = append(issues, s.checkRequired(record)...)
	issues = append(issues, s.checkDate(record)...)
	issues = append(issues, s.checkTotals(record)...)
	issues = append(issues, s.checkLineItems(record)...)
	issues = append(issues, s.checkLineItemSum(record)...)

	report := entity.ValidationReport{
		IsConsistent: true,
		Issues:       issues,
	}
	for _, is := range issues {
		if is.Severity == constants.SeverityError {
			report.IsConsistent = false
			break
		}
	}

	s.Logger.Debug("validate.done",
		"issues", len(issues),
		"consistent", report.IsConsistent,
	)
	return report
}

func (s *Stage) checkRequired(record entity.ExtractedRecord) []entity.Issue {
	var issues []entity.Issue
	for _, name := range entity.RequiredFields {
		if record.Field(name).Missing {
			issues = append(issues, entity.Issue{
				Severity:    constants.SeverityError,
				Field:       name,
				Description: "required field is missing",
			})
		}
	}
	return issues
}

func (s *Stage) checkDate(record entity.ExtractedRecord) []entity.Issue {
	date := record.InvoiceDate
	if date.Missing {
		return nil // absence is covered by the required-field rule
	}
	if _, err := common.ParseCalendarDate(date.Value); err != nil {
		return []entity.Issue{{
			Severity:    constants.SeverityError,
			Field:       entity.FieldInvoiceDate,
			Description: fmt.Sprintf("value %q does not parse as a calendar date", date.Value),
		}}
	}
	return nil
}

// checkTotals verifies net + tax == gross within tolerance.
func (s *Stage) checkTotals(record entity.ExtractedRecord) []entity.Issue {
	var issues []entity.Issue

	net, netIssues := s.amount(record.NetTotal, entity.FieldNetTotal)
	tax, taxIssues := s.amount(record.TaxAmount, entity.FieldTaxAmount)
	gross, grossIssues := s.amount(record.GrossTotal, entity.FieldGrossTotal)
	issues = append(issues, netIssues...)
	issues = append(issues, taxIssues...)
	issues = append(issues, grossIssues...)

	if net == nil || tax == nil || gross == nil {
		return issues
	}
	if diff := math.Abs(*net + *tax - *gross); diff > s.Tolerance {
		issues = append(issues, entity.Issue{
			Severity: constants.SeverityError,
			Field:    entity.FieldGrossTotal,
			Description: fmt.Sprintf("net (%s) + tax (%s) != gross (%s), off by %.2f",
				record.NetTotal.Value, record.TaxAmount.Value, record.GrossTotal.Value, diff),
		})
	}
	return issues
}

// checkLineItems verifies quantity * unit price == line total per item.
// Line items are model-extracted and more error-prone than header totals,
// so violations are warnings.
func (s *Stage) checkLineItems(record entity.ExtractedRecord) []entity.Issue {
	var issues []entity.Issue
	for _, item := range record.LineItems {
		ref := fmt.Sprintf("line_items[%d]", item.Position)

		qty, err1 := common.ParseAmount(item.Quantity)
		unit, err2 := common.ParseAmount(item.UnitPrice)
		total, err3 := common.ParseAmount(item.LineTotal)
		if err1 != nil || err2 != nil || err3 != nil {
			issues = append(issues, entity.Issue{
				Severity:    constants.SeverityWarning,
				Field:       ref,
				Description: "line item has unparseable quantity, unit price or total",
			})
			continue
		}

		if diff := math.Abs(qty*unit - total); diff > s.Tolerance {
			issues = append(issues, entity.Issue{
				Severity: constants.SeverityWarning,
				Field:    ref,
				Description: fmt.Sprintf("quantity (%s) * unit price (%s) != line total (%s), off by %.2f",
					item.Quantity, item.UnitPrice, item.LineTotal, diff),
			})
		}
	}
	return issues
}

// checkLineItemSum verifies sum(line totals) == net total.
func (s *Stage) checkLineItemSum(record entity.ExtractedRecord) []entity.Issue {
	if record.NetTotal.Missing || len(record.LineItems) == 0 {
		return nil
	}
	net, err := common.ParseAmount(record.NetTotal.Value)
	if err != nil {
		return nil // reported by checkTotals
	}

	sum := 0.0
	for _, item := range record.LineItems {
		total, err := common.ParseAmount(item.LineTotal)
		if err != nil {
			return nil // incomplete data; per-line rule reports it
		}
		sum += total
	}

	if diff := math.Abs(sum - net); diff > s.Tolerance {
		return []entity.Issue{{
			Severity: constants.SeverityWarning,
			Field:    entity.FieldNetTotal,
			Description: fmt.Sprintf("sum of line totals (%.2f) != net total (%s), off by %.2f",
				sum, record.NetTotal.Value, diff),
		}}
	}
	return nil
}

// amount parses a monetary field, emitting an ERROR for present but
// unparseable values. Missing fields yield no issue here.
func (s *Stage) amount(v entity.FieldValue, name string) (*float64, []entity.Issue) {
	if v.Missing {
		return nil, nil
	}
	f, err := common.ParseAmount(v.Value)
	if err != nil {
		return nil, []entity.Issue{{
			Severity:    constants.SeverityError,
			Field:       name,
			Description: fmt.Sprintf("value %q is not a parseable amount", v.Value),
		}}
	}
	return &f, nil
}
