package loans

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"toolcrib-backend/internal/inventory/tools"
	"toolcrib-backend/internal/platform/apperr"
	"toolcrib-backend/internal/platform/db"
	"toolcrib-backend/internal/platform/events"
	"toolcrib-backend/internal/platform/paging"
)

var (
	ErrLoanNotFound    = apperr.NotFound(apperr.ReasonLoanNotFound, "loan not found")
	ErrDuplicateTicket = apperr.Conflict(apperr.ReasonDuplicateTicket, "ticket number already in use")
	ErrAlreadyReturned = apperr.Conflict(apperr.ReasonAlreadyReturned, "loan already returned")
	errIssuerGone      = apperr.Unauthenticated("user no longer exists")
)

// Recorder は貸出の計測。metrics.Registry が満たす。
type Recorder interface {
	LoanCreated(qty int)
	LoanReturned(qty int)
	LoanRejected(op, code string)
}

type nopRecorder struct{}

func (nopRecorder) LoanCreated(int)             {}
func (nopRecorder) LoanReturned(int)            {}
func (nopRecorder) LoanRejected(string, string) {}

type Service struct {
	db      *db.Conn
	store   *Store
	ledger  *tools.Ledger
	tickets *TicketGenerator
	metrics Recorder
	events  events.Publisher
	now     func() time.Time
}

type Option func(*Service)

func WithRecorder(r Recorder) Option { return func(s *Service) { s.metrics = r } }

func WithPublisher(p events.Publisher) Option { return func(s *Service) { s.events = p } }

// WithTicketLocation はチケットの日付を切り替えるタイムゾーン
func WithTicketLocation(loc *time.Location) Option {
	return func(s *Service) { s.tickets = NewTicketGenerator(s.store, loc) }
}

func NewService(conn *db.Conn, ledger *tools.Ledger, opts ...Option) *Service {
	store := NewStore(conn)
	s := &Service{
		db:      conn,
		store:   store,
		ledger:  ledger,
		tickets: NewTicketGenerator(store, time.UTC),
		metrics: nopRecorder{},
		events:  events.Nop{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GenerateTicket は候補を返すだけで予約はしない
func (s *Service) GenerateTicket(ctx context.Context) (TicketResponse, error) {
	t, err := s.tickets.Generate(ctx)
	if err != nil {
		return TicketResponse{}, err
	}
	return TicketResponse{TicketNumber: t}, nil
}

func validateCreate(in *CreateLoanRequest) error {
	in.TicketNumber = strings.TrimSpace(in.TicketNumber)
	in.Responsible = strings.TrimSpace(in.Responsible)
	in.UsageLocation = strings.TrimSpace(in.UsageLocation)

	switch {
	case in.TicketNumber == "":
		return apperr.Invalid("ticket_number is required")
	case !ValidTicket(in.TicketNumber):
		return apperr.Invalid("ticket_number must match TICKET-YYYYMMDD-NNNN")
	case in.ToolID <= 0:
		return apperr.Invalid("tool_id is required")
	case in.Quantity <= 0:
		return apperr.Invalid("quantity must be > 0")
	case in.Responsible == "":
		return apperr.Invalid("responsible is required")
	case in.UsageLocation == "":
		return apperr.Invalid("usage_location is required")
	}
	return nil
}

// CreateLoan: 検証 → 重複チケット確認 → 在庫引当 → 登録 を1トランザクションで行う。
// 途中で失敗したら在庫も含めて全部ロールバックされる。
func (s *Service) CreateLoan(ctx context.Context, issuer int64, in CreateLoanRequest) (LoanResponse, error) {
	if err := validateCreate(&in); err != nil {
		return LoanResponse{}, s.reject("create", err)
	}

	var row *loanRow
	err := db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		exists, err := s.store.ticketExists(ctx, tx, in.TicketNumber)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateTicket
		}

		if err := s.ledger.Reserve(ctx, tx, in.ToolID, in.Quantity); err != nil {
			return err
		}

		m := &Loan{
			TicketNumber:  in.TicketNumber,
			ToolID:        in.ToolID,
			Quantity:      in.Quantity,
			Responsible:   in.Responsible,
			UsageLocation: in.UsageLocation,
			IssuedBy:      issuer,
			Status:        StatusActive,
			CreatedAt:     s.now(),
		}
		if err := s.store.insert(ctx, tx, m); err != nil {
			switch {
			case db.IsUniqueViolation(err):
				// 確認後に別Txが同じ番号で先にコミットした
				return ErrDuplicateTicket
			case db.IsForeignKeyViolation(err):
				return errIssuerGone
			}
			return err
		}

		row, err = s.store.getRow(ctx, tx, m.ID)
		return err
	})
	if err != nil {
		return LoanResponse{}, s.reject("create", err)
	}

	s.metrics.LoanCreated(row.Quantity)
	s.publish(ctx, events.LoanCreated, row, issuer)
	return toResponse(row), nil
}

// ReturnLoan: Active → Returned を一度だけ。返却数量をそのまま在庫へ戻す。
func (s *Service) ReturnLoan(ctx context.Context, returner int64, id int64, in ReturnLoanRequest) (LoanResponse, error) {
	notes := sql.NullString{}
	if in.Notes != nil {
		if v := strings.TrimSpace(*in.Notes); v != "" {
			notes = sql.NullString{String: v, Valid: true}
		}
	}

	var row *loanRow
	err := db.RunInTx(ctx, s.db.DB, nil, func(ctx context.Context, tx db.DBTX) error {
		m, err := s.store.lockLoan(ctx, tx, id)
		if err != nil {
			return err
		}
		if m.Status == StatusReturned {
			return ErrAlreadyReturned
		}

		n, err := s.store.markReturned(ctx, tx, id, s.now(), notes, returner)
		if err != nil {
			if db.IsForeignKeyViolation(err) {
				return errIssuerGone
			}
			return err
		}
		if n != 1 {
			return ErrAlreadyReturned
		}

		if err := s.ledger.Release(ctx, tx, m.ToolID, m.Quantity); err != nil {
			return err
		}

		row, err = s.store.getRow(ctx, tx, id)
		return err
	})
	if err != nil {
		return LoanResponse{}, s.reject("return", err)
	}

	s.metrics.LoanReturned(row.Quantity)
	s.publish(ctx, events.LoanReturned, row, returner)
	return toResponse(row), nil
}

func (s *Service) GetLoan(ctx context.Context, id int64) (LoanResponse, error) {
	row, err := s.store.getRow(ctx, s.db, id)
	if err != nil {
		return LoanResponse{}, wrap(err)
	}
	return toResponse(row), nil
}

func (s *Service) ListLoans(ctx context.Context, f ListQuery, p paging.Params) (ListLoansResult, error) {
	p = p.Normalize()
	rows, total, err := s.store.list(ctx, f, p)
	if err != nil {
		return ListLoansResult{}, apperr.Internal(err)
	}
	items := make([]LoanResponse, 0, len(rows))
	for i := range rows {
		items = append(items, toResponse(&rows[i]))
	}
	return ListLoansResult{Items: items, Pagination: paging.NewMeta(total, p)}, nil
}

func (s *Service) reject(op string, err error) error {
	err = wrap(err)
	var api *apperr.APIError
	if errors.As(err, &api) {
		s.metrics.LoanRejected(op, string(api.Code))
	}
	return err
}

func (s *Service) publish(ctx context.Context, key string, r *loanRow, actor int64) {
	events.PublishLogged(ctx, s.events, key, LoanEvent{
		LoanID:       r.ID,
		TicketNumber: r.TicketNumber,
		ToolID:       r.ToolID,
		Quantity:     r.Quantity,
		Status:       r.Status,
		ActorID:      actor,
		OccurredAt:   s.now(),
	})
}

// wrap: APIError 以外は INTERNAL に包む
func wrap(err error) error {
	if err == nil {
		return nil
	}
	var api *apperr.APIError
	if errors.As(err, &api) {
		return err
	}
	return apperr.Internal(err)
}
