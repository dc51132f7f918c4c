package loans

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"toolcrib-backend/internal/platform/apperr"
)

const (
	ticketPrefix  = "TICKET-"
	ticketDateFmt = "20060102"
	maxTicketSeq  = 9999
)

var ticketPattern = regexp.MustCompile(`^TICKET-\d{8}-\d{4}$`)

var ErrTicketSequenceExhausted = &apperr.APIError{
	Code:    apperr.CodeConflict,
	Reason:  apperr.ReasonTicketSequenceExhausted,
	Message: "ticket sequence for today is exhausted",
}

func ValidTicket(s string) bool { return ticketPattern.MatchString(s) }

func dayPrefix(day time.Time) string {
	return ticketPrefix + day.Format(ticketDateFmt) + "-"
}

// NextTicket は当日の既存チケットの最大連番 + 1 を返す（件数 + 1 ではない）。
// 形式に合わないものは無視する。9999 を超えたら発番しない。
func NextTicket(day time.Time, existing []string) (string, error) {
	prefix := dayPrefix(day)
	maxSeq := 0
	for _, t := range existing {
		if !strings.HasPrefix(t, prefix) || !ValidTicket(t) {
			continue
		}
		n, err := strconv.Atoi(t[len(prefix):])
		if err != nil {
			continue
		}
		if n > maxSeq {
			maxSeq = n
		}
	}
	if maxSeq >= maxTicketSeq {
		return "", ErrTicketSequenceExhausted
	}
	return fmt.Sprintf("%s%04d", prefix, maxSeq+1), nil
}

type ticketLister interface {
	TicketsWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// TicketGenerator は読んで計算するだけで直列化しない。
// 同時発番の衝突は作成時の重複チェックと UNIQUE 制約で弾く。
type TicketGenerator struct {
	store ticketLister
	loc   *time.Location
	now   func() time.Time
}

func NewTicketGenerator(store ticketLister, loc *time.Location) *TicketGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &TicketGenerator{store: store, loc: loc, now: time.Now}
}

func (g *TicketGenerator) Generate(ctx context.Context) (string, error) {
	day := g.now().In(g.loc)
	existing, err := g.store.TicketsWithPrefix(ctx, dayPrefix(day))
	if err != nil {
		return "", apperr.Internal(err)
	}
	return NextTicket(day, existing)
}
