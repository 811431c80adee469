package services

import (
	"bytes"
	"fmt"
	"strings"

	"lead_flow_app_go/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// MaxExportLeads bounds a single export request
const MaxExportLeads = 1000

const exportSheet = "Leads"

var exportBaseColumns = []string{
	"Lead ID", "Name", "Phone", "Email", "Lead Status", "Assigned To",
	"Insurance Type", "Verification Status", "Policy Issue Date", "Renewal Type",
}

// ExportRow is one flattened lead with its most recent verification record
type ExportRow struct {
	Lead          models.Lead
	Record        *models.VerificationRecord
	DocumentCount int
	LatestRemark  string
}

// BuildExportRows loads one row per known lead id, in request order. Unknown
// ids are skipped.
func BuildExportRows(db *gorm.DB, leadIDs []string) ([]ExportRow, error) {
	ids := uniqueIDs(leadIDs)
	if len(ids) == 0 {
		return nil, NewValidationError("at least one lead is required", "lead_ids")
	}
	if len(ids) > MaxExportLeads {
		return nil, NewValidationError(fmt.Sprintf("at most %d leads can be exported at once", MaxExportLeads), "lead_ids")
	}

	var leads []models.Lead
	if err := db.Preload("AssignedTo").Where("id IN ?", ids).Find(&leads).Error; err != nil {
		return nil, &UpstreamError{Op: "load leads", Err: err}
	}
	leadByID := make(map[string]models.Lead, len(leads))
	for _, l := range leads {
		leadByID[l.ID] = l
	}

	var records []models.VerificationRecord
	if err := db.Where("lead_id IN ?", ids).Order("updated_at DESC").Find(&records).Error; err != nil {
		return nil, &UpstreamError{Op: "load verifications", Err: err}
	}
	latest := make(map[string]*models.VerificationRecord)
	var recordIDs []string
	for i := range records {
		r := &records[i]
		if _, seen := latest[r.LeadID]; !seen {
			latest[r.LeadID] = r
			recordIDs = append(recordIDs, r.ID)
		}
	}

	counts, err := DocumentCounts(db, recordIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(ids))
	for _, id := range ids {
		lead, ok := leadByID[id]
		if !ok {
			continue
		}
		row := ExportRow{Lead: lead}
		if r, ok := latest[id]; ok {
			row.Record = r
			row.DocumentCount = counts[r.ID]
			remark, err := LatestRemark(db, r.ID)
			if err != nil {
				return nil, err
			}
			if remark != nil {
				row.LatestRemark = remark.Text
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ExportColumns returns the header row: lead identity, verification fields,
// the product columns of every insurance type present, then documents and remark
func ExportColumns(rows []ExportRow) ([]string, []string) {
	present := map[models.InsuranceType]bool{}
	for _, r := range rows {
		if r.Record != nil {
			present[r.Record.InsuranceType] = true
		}
	}

	var fieldKeys []string
	seen := map[string]bool{}
	for _, v := range ProductVariants() {
		if !present[v.Type] {
			continue
		}
		for _, k := range v.ExportFields {
			if !seen[k] {
				seen[k] = true
				fieldKeys = append(fieldKeys, k)
			}
		}
	}

	headers := append([]string{}, exportBaseColumns...)
	for _, k := range fieldKeys {
		headers = append(headers, humanizeKey(k))
	}
	headers = append(headers, "Documents", "Latest Remark")
	return headers, fieldKeys
}

// ExportLeadsWorkbook renders the rows as an xlsx workbook. Contact details are
// masked when masked is true.
func ExportLeadsWorkbook(rows []ExportRow, masked bool) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", exportSheet)

	headers, fieldKeys := ExportColumns(rows)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, h)
	}

	for i, r := range rows {
		values := exportValues(r, fieldKeys, masked)
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(exportSheet, cell, v)
		}
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(exportSheet, "A1", lastHeader, headerStyle)
	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

func exportValues(r ExportRow, fieldKeys []string, masked bool) []interface{} {
	phone, email := r.Lead.Phone, r.Lead.Email
	if masked {
		phone = MaskPhone(phone)
		if email != "" {
			email = MaskEmail(email)
		}
	}
	assignee := ""
	if r.Lead.AssignedTo != nil {
		assignee = r.Lead.AssignedTo.Name
	}

	values := []interface{}{r.Lead.ID, r.Lead.Name, phone, email, r.Lead.Status, assignee}
	if r.Record == nil {
		values = append(values, "", "", "", "")
		for range fieldKeys {
			values = append(values, "")
		}
		return append(values, 0, "")
	}

	issueDate := ""
	if r.Record.PolicyIssueDate != nil {
		issueDate = r.Record.PolicyIssueDate.Format("2006-01-02")
	}
	renewal := ""
	if r.Record.RenewalType != nil {
		renewal = *r.Record.RenewalType
	}
	values = append(values, string(r.Record.InsuranceType), string(r.Record.Status), issueDate, renewal)

	variant, _ := VariantFor(r.Record.InsuranceType)
	own := map[string]bool{}
	for _, k := range variant.ExportFields {
		own[k] = true
	}
	for _, k := range fieldKeys {
		v, ok := r.Record.ProductFields[k]
		if !own[k] || !ok || v == nil {
			values = append(values, "")
			continue
		}
		values = append(values, fmt.Sprint(v))
	}
	return append(values, r.DocumentCount, r.LatestRemark)
}

func humanizeKey(k string) string {
	parts := strings.Split(k, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		switch p {
		case "idv", "ncb":
			parts[i] = strings.ToUpper(p)
		default:
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

func uniqueIDs(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
