package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"

	"github.com/google/uuid"
)

var ErrEmptyUpload = errors.New("upload contains no valid brokerage rows")

// maxRowErrors caps the row errors echoed back to the uploader.
const maxRowErrors = 50

var tradeDateLayouts = []string{"2006-01-02", "02-01-2006", "02/01/2006"}

type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type UploadResult struct {
	Upload model.BrokerageUpload `json:"upload"`
	Errors []RowError            `json:"errors"`
}

type BrokerageReport struct {
	From    string                      `json:"from"`
	To      string                      `json:"to"`
	Total   int64                       `json:"total"`
	Summary []model.BrokerageSummary    `json:"summary"`
	Daily   []repository.DailyBrokerage `json:"daily"`
	Uploads []model.BrokerageUpload     `json:"uploads"`
}

type BrokerageService interface {
	Upload(actor model.Identity, fileName string, r io.Reader) (*UploadResult, error)
	Report(filter repository.BrokerageFilter) (*BrokerageReport, error)
	ExportCSV(w io.Writer, filter repository.BrokerageFilter) error
}

type brokerageService struct {
	brokerageRepo repository.BrokerageRepository
	clientRepo    repository.ClientRepository
	notifications NotificationService
}

func NewBrokerageService(brokerageRepo repository.BrokerageRepository, clientRepo repository.ClientRepository, notifications NotificationService) BrokerageService {
	return &brokerageService{
		brokerageRepo: brokerageRepo,
		clientRepo:    clientRepo,
		notifications: notifications,
	}
}

// Upload imports a brokerage CSV with the columns client_code, trade_date,
// segment and amount (rupees). Bad rows are skipped and reported; the rest
// are stored as one batch.
func (s *brokerageService) Upload(actor model.Identity, fileName string, r io.Reader) (*UploadResult, error) {
	// 1. Parse the file
	rows, rowErrs, err := parseBrokerageCSV(r)
	if err != nil {
		return nil, invalid("Validation failed: " + err.Error())
	}

	// 2. Resolve client codes to their dealers
	codes := make([]string, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		if !seen[row.ClientCode] {
			seen[row.ClientCode] = true
			codes = append(codes, row.ClientCode)
		}
	}
	clients, err := s.clientRepo.FindByCodes(codes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]model.Client, len(clients))
	for _, c := range clients {
		byCode[c.ClientCode] = c
	}

	records := make([]model.BrokerageRecord, 0, len(rows))
	var total int64
	for _, row := range rows {
		client, ok := byCode[row.ClientCode]
		if !ok {
			rowErrs = append(rowErrs, RowError{Line: row.line, Reason: "unknown client code " + row.ClientCode})
			continue
		}
		rec := row.BrokerageRecord
		switch rec.Segment {
		case model.SegmentEquity:
			rec.DealerID = client.EquityDealerID
		case model.SegmentMF:
			rec.DealerID = client.MFDealerID
		}
		records = append(records, rec)
		total += rec.Amount
	}
	if len(records) == 0 {
		return &UploadResult{Errors: capErrors(rowErrs)}, ErrEmptyUpload
	}

	// 3. Store the batch
	upload := &model.BrokerageUpload{
		FileName:     fileName,
		UploadedByID: actor.ID,
		RowCount:     len(records),
		SkippedRows:  len(rowErrs),
		TotalAmount:  total,
		Status:       model.UploadProcessed,
	}
	if len(rowErrs) > 0 {
		upload.Status = model.UploadPartial
	}
	upload.CreatedBy = actorID(actor.ID)
	upload.UpdatedBy = actorID(actor.ID)
	if err := s.brokerageRepo.CreateUpload(upload, records); err != nil {
		return nil, fmt.Errorf("store brokerage upload: %w", err)
	}
	log.Printf("brokerage upload id=%s file=%s rows=%d skipped=%d by=%s", upload.ID, fileName, upload.RowCount, upload.SkippedRows, actor.ID)

	// 4. Tell every dealer whose book changed
	s.notifyDealers(upload, records)

	return &UploadResult{Upload: *upload, Errors: capErrors(rowErrs)}, nil
}

func (s *brokerageService) notifyDealers(upload *model.BrokerageUpload, records []model.BrokerageRecord) {
	perDealer := map[uuid.UUID]int64{}
	for _, rec := range records {
		if rec.DealerID != nil {
			perDealer[*rec.DealerID] += rec.Amount
		}
	}
	if len(perDealer) == 0 {
		return
	}
	ns := make([]model.Notification, 0, len(perDealer))
	for dealer, amount := range perDealer {
		ns = append(ns, model.Notification{
			RecipientID: dealer,
			Title:       "Brokerage uploaded",
			Message:     fmt.Sprintf("%s added %s of brokerage for your clients", upload.FileName, FormatRupees(amount)),
			Kind:        model.NotifyBrokerageUpload,
		})
	}
	if err := s.notifications.SendMany(ns); err != nil {
		log.Printf("brokerage notify dealers upload=%s: %v", upload.ID, err)
	}
}

func (s *brokerageService) Report(filter repository.BrokerageFilter) (*BrokerageReport, error) {
	if filter.To.Before(filter.From) {
		return nil, invalid("Validation failed: 'to' is before 'from'")
	}
	summary, err := s.brokerageRepo.Summary(filter)
	if err != nil {
		return nil, err
	}
	total, err := s.brokerageRepo.Total(filter)
	if err != nil {
		return nil, err
	}
	daily, err := s.brokerageRepo.Daily(filter)
	if err != nil {
		return nil, err
	}
	uploads, err := s.brokerageRepo.FindUploads(10)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		summary = []model.BrokerageSummary{}
	}
	if daily == nil {
		daily = []repository.DailyBrokerage{}
	}
	return &BrokerageReport{
		From:    filter.From.Format("2006-01-02"),
		To:      filter.To.Format("2006-01-02"),
		Total:   total,
		Summary: summary,
		Daily:   daily,
		Uploads: uploads,
	}, nil
}

func (s *brokerageService) ExportCSV(w io.Writer, filter repository.BrokerageFilter) error {
	summary, err := s.brokerageRepo.Summary(filter)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"client_code", "segment", "trades", "amount"}); err != nil {
		return err
	}
	for _, row := range summary {
		if err := cw.Write([]string{row.ClientCode, row.Segment, strconv.FormatInt(row.Trades, 10), FormatRupees(row.Amount)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type parsedRow struct {
	model.BrokerageRecord
	line int
}

func parseBrokerageCSV(r io.Reader) ([]parsedRow, []RowError, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, want := range []string{"client_code", "trade_date", "segment", "amount"} {
		if _, ok := cols[want]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", want)
		}
	}

	var rows []parsedRow
	var rowErrs []RowError
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		field := func(name string) string {
			if i := cols[name]; i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		code := strings.ToUpper(field("client_code"))
		if code == "" {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "client_code is empty"})
			continue
		}
		date, ok := parseTradeDate(field("trade_date"))
		if !ok {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "bad trade_date " + field("trade_date")})
			continue
		}
		seg := model.Segment(strings.ToUpper(field("segment")))
		if seg != model.SegmentEquity && seg != model.SegmentMF {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: "segment must be EQUITY or MF"})
			continue
		}
		amount, err := ParsePaise(field("amount"))
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Reason: err.Error()})
			continue
		}
		rows = append(rows, parsedRow{
			BrokerageRecord: model.BrokerageRecord{ClientCode: code, TradeDate: date, Segment: seg, Amount: amount},
			line:            line,
		})
	}
	return rows, rowErrs, nil
}

func parseTradeDate(s string) (time.Time, bool) {
	for _, layout := range tradeDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParsePaise converts a rupee amount such as "1,234.5" into paise. At most
// two decimals and a single leading minus are accepted.
func ParsePaise(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, errors.New("amount is empty")
	}
	raw := s
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	if !digits(whole) || !digits(frac) || whole+frac == "" {
		return 0, fmt.Errorf("bad amount %q", raw)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", raw)
	}
	frac += strings.Repeat("0", 2-len(frac))
	if whole == "" {
		whole = "0"
	}
	paise, _ := strconv.ParseInt(frac, 10, 64)
	rupees, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || rupees > (math.MaxInt64-paise)/100 {
		return 0, fmt.Errorf("amount %q out of range", raw)
	}
	v := rupees*100 + paise
	if neg {
		v = -v
	}
	return v, nil
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatRupees renders paise as a plain rupee amount with two decimals.
func FormatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%d.%02d", sign, paise/100, paise%100)
}

func capErrors(errs []RowError) []RowError {
	if errs == nil {
		return []RowError{}
	}
	if len(errs) > maxRowErrors {
		return errs[:maxRowErrors]
	}
	return errs
}
