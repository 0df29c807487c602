package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"gymflow/internal/apperr"
	"gymflow/internal/calendar"
	"gymflow/internal/logger"
	"gymflow/internal/membership"
	"gymflow/internal/notify"
	"gymflow/internal/settings"
)

// Deps collects the collaborators of the billing service.
type Deps struct {
	Store         Store
	Settings      settings.Provider
	Receipts      notify.ReceiptSender
	Queue         membership.Enqueuer
	Metrics       PaymentRecorder
	Clock         calendar.Clock
	Location      *time.Location
	ReceiptPrefix string
	Logger        *zap.Logger
}

// service implements the Service interface.
type service struct {
	Deps
	tracer trace.Tracer
}

// NewService creates a new billing service instance.
func NewService(d Deps) Service {
	if d.Clock == nil {
		d.Clock = calendar.SystemClock{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.ReceiptPrefix == "" {
		d.ReceiptPrefix = DefaultReceiptPrefix
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &service{Deps: d, tracer: otel.Tracer("gymflow/billing")}
}

// RecordPayment stores the payment, reactivates the member and advances
// their due date in one transaction, then queues the receipt email.
func (s *service) RecordPayment(ctx context.Context, in RecordInput) (*Payment, error) {
	ctx, span := s.tracer.Start(ctx, "billing.record_payment", trace.WithAttributes(
		attribute.String("member.id", in.MemberID.String()),
		attribute.Int("payment.month", in.Month),
		attribute.Int("payment.year", in.Year),
	))
	defer span.End()

	if err := validate(in); err != nil {
		return nil, err
	}

	dueDay, err := settings.DueDayOf(ctx, s.Settings)
	if err != nil {
		return nil, err
	}
	nextDue := membership.NextDueDate(membership.PeriodAnchor(in.Year, in.Month, dueDay, s.Location), dueDay)

	memberID := in.MemberID
	p := &Payment{
		ID:            uuid.New(),
		MemberID:      &memberID,
		Month:         in.Month,
		Year:          in.Year,
		Amount:        in.Amount.Round(2),
		PaidDate:      s.Clock.Now(),
		Notes:         optional(in.Notes),
		CollectedByID: in.CollectedByID,
	}

	var payer *Payer
	err = s.Store.WithinTx(ctx, func(tx Tx) error {
		var err error
		if payer, err = tx.LockMember(ctx, in.MemberID); err != nil {
			return err
		}

		existing, err := tx.FindByMemberPeriod(ctx, in.MemberID, in.Month, in.Year)
		if err != nil {
			return err
		}
		if existing != nil {
			return duplicatePeriod(in.Month, in.Year)
		}

		prefix := PeriodPrefix(s.ReceiptPrefix, in.Month, in.Year)
		latest, err := tx.MaxReceiptForPrefix(ctx, prefix)
		if err != nil {
			return err
		}
		if p.ReceiptNumber, err = NextReceiptNumber(prefix, latest); err != nil {
			return err
		}

		if err := tx.Insert(ctx, p, nextDue); err != nil {
			return err
		}
		return tx.UpdateMemberLifecycle(ctx, in.MemberID, nextDue)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	p.Member = &PaymentMember{FullName: payer.FullName, Phone: payer.Phone, Email: payer.Email}
	if in.CollectedByName != "" {
		p.CollectedBy = &Collector{Name: in.CollectedByName}
	}
	span.SetAttributes(attribute.String("payment.receipt", p.ReceiptNumber))

	logger.FromContext(ctx, s.Logger).Info("Payment recorded",
		zap.String("payment_id", p.ID.String()),
		zap.String("member_id", in.MemberID.String()),
		zap.String("receipt_number", p.ReceiptNumber),
		zap.String("amount", p.Amount.StringFixed(2)),
		zap.String("next_due_date", calendar.Format(nextDue)),
	)
	if s.Metrics != nil {
		s.Metrics.RecordPayment(ctx, p.Amount)
	}
	s.queueReceipt(ctx, p, payer, nextDue)
	return p, nil
}

func (s *service) queueReceipt(ctx context.Context, p *Payment, payer *Payer, nextDue time.Time) {
	if s.Receipts == nil || s.Queue == nil || payer.Email == nil {
		return
	}
	msg := notify.Receipt{
		Recipient:     notify.Recipient{Name: payer.FullName, Email: *payer.Email, Phone: payer.Phone},
		ReceiptNumber: p.ReceiptNumber,
		Amount:        p.Amount,
		Month:         p.Month,
		Year:          p.Year,
		PaidAt:        p.PaidDate,
		NextDueDate:   nextDue,
	}
	if p.CollectedBy != nil {
		msg.CollectedBy = p.CollectedBy.Name
	}
	if !s.Queue.Enqueue("payment receipt email", func(ctx context.Context) error {
		_, err := s.Receipts.SendPaymentReceipt(ctx, msg)
		return err
	}) {
		logger.FromContext(ctx, s.Logger).Warn("Receipt email dropped, notification queue full",
			zap.String("receipt_number", p.ReceiptNumber))
	}
}

func (s *service) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return s.Store.FindByID(ctx, id)
}

func (s *service) ListPayments(ctx context.Context, f ListFilter) (*PaymentPage, error) {
	if f.Month != 0 && (f.Month < 1 || f.Month > 12) {
		return nil, apperr.Validation("month must be between 1 and 12.")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	payments, total, err := s.Store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return &PaymentPage{Total: total, Page: f.Page, Limit: f.Limit, Payments: payments}, nil
}

func (s *service) MemberPayments(ctx context.Context, memberID uuid.UUID, limit int) ([]*Payment, error) {
	return s.Store.RecentForMember(ctx, memberID, limit)
}

// MonthlyRevenue sums a year's payments per month. Year zero means the
// current year in the gym's timezone.
func (s *service) MonthlyRevenue(ctx context.Context, year int) (*RevenueSummary, error) {
	if year == 0 {
		year = calendar.Today(s.Clock, s.Location).Year()
	}

	rows, err := s.Store.MonthlyRevenue(ctx, year)
	if err != nil {
		return nil, err
	}

	summary := &RevenueSummary{Year: year, Months: make([]MonthRevenue, 12), TotalRevenue: decimal.Zero}
	for i := range summary.Months {
		summary.Months[i] = MonthRevenue{Month: i + 1, Revenue: decimal.Zero}
	}
	for _, row := range rows {
		if row.Month < 1 || row.Month > 12 {
			continue
		}
		summary.Months[row.Month-1] = row
		summary.TotalRevenue = summary.TotalRevenue.Add(row.Revenue)
	}
	return summary, nil
}

// maxAmount is the first value a NUMERIC(10,2) column cannot hold.
var maxAmount = decimal.New(1, 8)

func validate(in RecordInput) error {
	if in.MemberID == uuid.Nil || in.Month == 0 || in.Year == 0 || in.Amount.IsZero() {
		return apperr.Validation("memberId, month, year, and amount are required.")
	}
	if in.Month < 1 || in.Month > 12 {
		return apperr.Validation("month must be between 1 and 12.")
	}
	if in.Year < 2000 || in.Year > 2100 {
		return apperr.Validation("year must be between 2000 and 2100.")
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return apperr.Validation("amount must be greater than zero.")
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return apperr.Validation("amount is too large.")
	}
	return nil
}

func duplicatePeriod(month, year int) error {
	return apperr.Conflict("Payment for %d/%d already recorded for this member.", month, year)
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
