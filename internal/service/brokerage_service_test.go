package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"go-brokerage-crm/internal/model"
	"go-brokerage-crm/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaise(t *testing.T) {
	cases := map[string]int64{
		"0":          0,
		"12":         1200,
		"12.5":       1250,
		"12.05":      1205,
		"1,234.50":   123450,
		"-40.10":     -4010,
		".75":        75,
		" 99.99 ":    9999,
		"1,00,000.1": 10000010,
		"-.5":        -50,
		"7.":         700,

		"92233720368547758.07": 9223372036854775807,
	}
	for in, want := range cases {
		got, err := ParsePaise(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "abc", "1.234", "1.-5", "1e3", "--5", "1.+5", "+5", "-", ".", "1..5", "9223372036854775807", "92233720368547758.08"} {
		_, err := ParsePaise(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatRupees(t *testing.T) {
	assert.Equal(t, "0.00", FormatRupees(0))
	assert.Equal(t, "1234.50", FormatRupees(123450))
	assert.Equal(t, "-0.05", FormatRupees(-5))
}

type brokerageFixture struct {
	svc    BrokerageService
	repo   *memBrokerage
	notes  *memNotifications
	admin  *model.Employee
	equity *model.Employee
	mf     *model.Employee
}

func newBrokerageFixture() *brokerageFixture {
	f := &brokerageFixture{
		repo:   &memBrokerage{},
		notes:  &memNotifications{},
		admin:  employee("Anil", "anil@example.com", model.RoleAdmin),
		equity: employee("Ravi", "ravi@example.com", model.RoleEquityDealer),
		mf:     employee("Meera", "meera@example.com", model.RoleMFDealer),
	}
	clients := newMemClients(
		&model.Client{ClientCode: "C001", Name: "Alpha", Segment: model.SegmentBoth, EquityDealerID: &f.equity.ID, MFDealerID: &f.mf.ID},
		&model.Client{ClientCode: "C002", Name: "Beta", Segment: model.SegmentEquity},
	)
	f.svc = NewBrokerageService(f.repo, clients, NewNotificationService(f.notes, nil))
	return f
}

const sampleUpload = `Client_Code,Trade_Date,Segment,Amount
C001,2024-06-03,EQUITY,"1,250.50"
c001,03-06-2024,MF,99
C002,2024-06-04,EQUITY,10
C999,2024-06-04,EQUITY,10
C001,2024-13-40,EQUITY,10
C001,2024-06-05,FNO,10
`

func TestBrokerageService_Upload(t *testing.T) {
	f := newBrokerageFixture()

	res, err := f.svc.Upload(f.admin.Identity(), "june.csv", strings.NewReader(sampleUpload))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Upload.RowCount)
	assert.Equal(t, 3, res.Upload.SkippedRows)
	assert.Equal(t, model.UploadPartial, res.Upload.Status)
	assert.Equal(t, int64(125050+9900+1000), res.Upload.TotalAmount)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 6, res.Errors[0].Line)
	assert.Equal(t, 7, res.Errors[1].Line)
	assert.Contains(t, res.Errors[2].Reason, "C999")

	require.Len(t, f.repo.records, 3)
	assert.Equal(t, f.equity.ID, *f.repo.records[0].DealerID)
	assert.Equal(t, f.mf.ID, *f.repo.records[1].DealerID)
	assert.Nil(t, f.repo.records[2].DealerID)

	// each dealer hears once about their own share
	eq := f.notes.For(f.equity.ID)
	require.Len(t, eq, 1)
	assert.Contains(t, eq[0].Message, "1250.50")
	assert.Len(t, f.notes.For(f.mf.ID), 1)
}

func TestBrokerageService_UploadRejectsBadFiles(t *testing.T) {
	f := newBrokerageFixture()

	_, err := f.svc.Upload(f.admin.Identity(), "empty.csv", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Upload(f.admin.Identity(), "nohdr.csv", strings.NewReader("code,date\nC001,2024-06-01\n"))
	assert.ErrorIs(t, err, ErrValidation)

	res, err := f.svc.Upload(f.admin.Identity(), "allbad.csv", strings.NewReader("client_code,trade_date,segment,amount\nC999,2024-06-01,EQUITY,1\n"))
	assert.ErrorIs(t, err, ErrEmptyUpload)
	require.NotNil(t, res)
	assert.Len(t, res.Errors, 1)
	assert.Empty(t, f.repo.uploads)
}

func TestBrokerageService_ReportAndExport(t *testing.T) {
	f := newBrokerageFixture()
	_, err := f.svc.Upload(f.admin.Identity(), "june.csv", strings.NewReader(sampleUpload))
	require.NoError(t, err)

	filter := repository.BrokerageFilter{
		From: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
	}
	rep, err := f.svc.Report(filter)
	require.NoError(t, err)
	assert.Equal(t, int64(135950), rep.Total)
	require.NotEmpty(t, rep.Summary)
	assert.Equal(t, "C001", rep.Summary[0].ClientCode)
	assert.Equal(t, "2024-06-01", rep.From)

	var buf bytes.Buffer
	require.NoError(t, f.svc.ExportCSV(&buf, filter))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "client_code,segment,trades,amount", lines[0])
	assert.Equal(t, "C001,EQUITY,1,1250.50", lines[1])

	_, err = f.svc.Report(repository.BrokerageFilter{From: filter.To, To: filter.From})
	assert.ErrorIs(t, err, ErrValidation)
}
