package loans

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"toolcrib-backend/internal/platform/apperr"
)

// 表計算ソフトで直接開けるように文字コードを選べる。既定は UTF-8。
var exportEncodings = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"shift_jis":    japanese.ShiftJIS,
}

var exportHeader = []string{
	"id", "ticket_number", "tool_id", "tool_name", "quantity", "responsible", "usage_location",
	"status", "issued_by", "created_at", "returned_at", "returned_by", "return_notes",
}

// Charset は Content-Type 用の名前。未対応なら INVALID_ARGUMENT。
func Charset(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		return "utf-8", nil
	}
	if _, ok := exportEncodings[name]; ok {
		return name, nil
	}
	return "", apperr.Invalid("unsupported encoding: " + name)
}

// ExportCSV は絞り込み条件に合う貸出を新しい順に書き出す。
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, f ListQuery, charset string) error {
	charset, err := Charset(charset)
	if err != nil {
		return err
	}
	rows, err := s.store.listAll(ctx, f)
	if err != nil {
		return apperr.Internal(err)
	}

	out := w
	var tw *transform.Writer
	if enc, ok := exportEncodings[charset]; ok {
		// 変換できない文字は置換して続行
		tw = transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
		out = tw
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(exportHeader); err != nil {
		return apperr.Internal(err)
	}
	for i := range rows {
		if err := cw.Write(csvRecord(&rows[i])); err != nil {
			return apperr.Internal(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return apperr.Internal(err)
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return apperr.Internal(err)
		}
	}
	return nil
}

func csvRecord(r *loanRow) []string {
	returnedAt, returnedBy, notes := "", "", ""
	if r.ReturnedAt.Valid {
		returnedAt = r.ReturnedAt.Time.UTC().Format(time.RFC3339)
	}
	if r.ReturnerName.Valid {
		returnedBy = cell(r.ReturnerName.String)
	}
	if r.ReturnNotes.Valid {
		notes = cell(r.ReturnNotes.String)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.TicketNumber,
		strconv.FormatInt(r.ToolID, 10),
		cell(r.ToolName),
		strconv.Itoa(r.Quantity),
		cell(r.Responsible),
		cell(r.UsageLocation),
		string(r.Status),
		cell(r.IssuerName),
		r.CreatedAt.UTC().Format(time.RFC3339),
		returnedAt,
		returnedBy,
		notes,
	}
}

// cell は表計算ソフトで数式として評価される先頭文字を無効化する
func cell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
