package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"assetboard/internal/core"
	applog "assetboard/internal/log"
	"assetboard/internal/sheets"
)

// entryForm holds the raw values of the manual entry form.
type entryForm struct {
	Date      string
	Account   string
	Segment   string
	Type      string
	Category1 string
	Category2 string
	Amount    string
	Currency  string
	Rate      string
	Memo      string
}

func readEntryForm(p *RequestBodyParser) entryForm {
	return entryForm{
		Date:      p.Get("date"),
		Account:   p.Get("account"),
		Segment:   p.Get("segment"),
		Type:      p.Get("type"),
		Category1: p.Get("category1"),
		Category2: p.Get("category2"),
		Amount:    p.Get("amount"),
		Currency:  p.Get("currency"),
		Rate:      p.Get("rate"),
		Memo:      p.Get("memo"),
	}
}

// resolveCategory2 keeps known keys, maps free text through the alias table
// and leaves anything unrecognized as typed.
func resolveCategory2(v string) string {
	if v == "" {
		return ""
	}
	if _, ok := core.FindByKey(core.Category2Key(v)); ok {
		return v
	}
	if key, ok := core.Normalize(v); ok {
		return string(key)
	}
	return v
}

// Row validates the form and builds the row to store.
func (f entryForm) Row() (core.TransactionRow, error) {
	date, err := time.Parse("2006-01-02", f.Date)
	if err != nil {
		return core.TransactionRow{}, core.ErrInvalidDate
	}
	segment, ok := core.ParseSegment(f.Segment)
	if !ok {
		return core.TransactionRow{}, core.ErrInvalidSegment
	}
	typ, err := core.ParseEntryType(f.Type)
	if err != nil {
		return core.TransactionRow{}, err
	}
	amount, err := core.ParseAmount(f.Amount)
	if err != nil {
		return core.TransactionRow{}, err
	}
	rate, err := core.ParseRate(f.Rate)
	if err != nil {
		return core.TransactionRow{}, err
	}
	row := core.TransactionRow{
		Date:      date,
		Account:   f.Account,
		Type:      typ,
		Category1: f.Category1,
		Amount:    amount,
		Currency:  f.Currency,
		Rate:      rate,
		Segment:   segment,
		Memo:      f.Memo,
	}
	if typ != core.TypeCashflow {
		row.Category2 = resolveCategory2(f.Category2)
	}
	return core.NewRow(row)
}

type option struct {
	Value, Label string
	Selected     bool
}

type entryRowView struct {
	ID           string
	Date         string
	Account      string
	Segment      string
	Type         string
	Category1    string
	Badge        core.Badge
	Amount       string
	Rate         string
	Converted    decimal.Decimal
	Memo         string
	DeleteAction string // posts back to the row's month
}

type flowView struct {
	Label      string
	Total      decimal.Decimal
	Categories []core.CategoryAmount
	Currencies []core.CategoryAmount
}

type entryPageData struct {
	page
	State        EntryState
	FormAction   string
	PrevHref     string
	NextHref     string
	Segments     []option
	Types        []option
	Category1    []string
	Cashflow     []string
	Category2In  []core.Category2Definition
	Category2Out []core.Category2Definition
	Currencies   []string
	Form         entryForm
	FormError    string
	Flows        []flowView
	Balance      decimal.Decimal
	Rows         []entryRowView
}

func entryHref(st EntryState) string {
	return "/manual-entry?" + st.Query().Encode()
}

func badgeOf(r core.TransactionRow) core.Badge {
	if r.Category2 == "" {
		return core.Badge{}
	}
	flow, ok := r.Type.Flow()
	if !ok {
		return core.Badge{Text: r.Category2Display()}
	}
	return core.BadgeFor(flow, core.Category2Key(r.Category2))
}

func toEntryRowView(r core.TransactionRow) entryRowView {
	v := entryRowView{
		ID:        r.ID,
		Date:      r.Date.Format("2006-01-02"),
		Account:   r.Account,
		Segment:   r.Segment.Label(),
		Type:      r.Type.Label(),
		Category1: r.Category1,
		Badge:     badgeOf(r),
		Amount:    FormatAmount(r.Amount, r.Currency),
		Converted: r.ConvertedAmountBase,
		Memo:      r.Memo,
	}
	if r.Rate.Valid && !core.IsBaseCurrency(r.Currency) {
		v.Rate = r.Rate.Decimal.String()
	}
	if r.ID != "" {
		back := url.Values{"month": {r.Date.Format("2006-01")}}
		v.DeleteAction = "/manual-entry/" + url.PathEscape(r.ID) + "/delete?" + back.Encode()
	}
	return v
}

func (s *Server) buildEntryPage(ctx context.Context, st EntryState, form entryForm) entryPageData {
	data := entryPageData{
		page:         newPage("手入力", "/manual-entry"),
		State:        st,
		FormAction:   entryHref(st),
		PrevHref:     entryHref(EntryState{Month: st.Month.Prev(), Segment: st.Segment, ExcludeFundTransfer: st.ExcludeFundTransfer}),
		NextHref:     entryHref(EntryState{Month: st.Month.Next(), Segment: st.Segment, ExcludeFundTransfer: st.ExcludeFundTransfer}),
		Category1:    core.Category1Options(),
		Cashflow:     core.CashflowCategories(),
		Category2In:  core.DefinitionsForFlow(core.FlowIn),
		Category2Out: core.DefinitionsForFlow(core.FlowOut),
		Currencies:   core.SupportedCurrencies(),
		Form:         form,
	}
	for _, seg := range core.Segments() {
		data.Segments = append(data.Segments, option{Value: string(seg), Label: seg.Label(), Selected: string(seg) == form.Segment})
	}
	for _, t := range []core.EntryType{core.TypeIn, core.TypeOut, core.TypeCashflow} {
		data.Types = append(data.Types, option{Value: string(t), Label: t.Label(), Selected: string(t) == form.Type})
	}

	rows, err := s.listRows(ctx, sheets.EntryQuery{Year: st.Month.Year, Month: st.Month.Month})
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Manual entry data error", applog.FieldError, err)
		data.Error = errorMessage(err)
		rows = nil
	}
	rows = core.SortByDate(core.FilterRows(rows, core.Filters{Segment: st.Segment}))

	sum := core.SummarizeFlows(rows, st.ExcludeFundTransfer)
	for _, f := range []struct {
		label  string
		bucket core.FlowBucket
	}{
		{"収入 (IN)", sum.In},
		{"支出 (OUT)", sum.Out},
		{"キャッシュフロー", sum.Cashflow},
	} {
		data.Flows = append(data.Flows, flowView{
			Label:      f.label,
			Total:      f.bucket.Total,
			Categories: f.bucket.SortedCategories(),
			Currencies: f.bucket.SortedCurrencies(),
		})
	}
	data.Balance = sum.Balance
	for _, r := range rows {
		data.Rows = append(data.Rows, toEntryRowView(r))
	}
	return data
}

func defaultForm(st EntryState, now time.Time) entryForm {
	date := now
	if date.Year() != st.Month.Year || int(date.Month()) != st.Month.Month {
		date = st.Month.Start()
	}
	seg := st.Segment
	if seg == "" {
		seg = string(core.SegmentCorporate)
	}
	return entryForm{
		Date:     date.Format("2006-01-02"),
		Segment:  seg,
		Type:     string(core.TypeOut),
		Currency: core.BaseCurrency,
	}
}

func (s *Server) handleManualEntry(w http.ResponseWriter, r *http.Request) {
	st := ParseEntryState(r.URL.Query(), s.now())
	data := s.buildEntryPage(r.Context(), st, defaultForm(st, s.now()))
	s.render(w, r, http.StatusOK, "manual_entry.html", data)
}

// handleCreateEntry stores a form or JSON entry. HTMX callers get a row
// partial, JSON callers the stored row, plain forms a redirect.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		logger.WarnContext(ctx, "Parse body error", applog.FieldError, err, "error_type", applog.ErrorTypeValidation)
		BadRequestError("リクエスト形式が不正です").Write(w)
		return
	}
	form := readEntryForm(parser)
	wantJSON := parser.IsJSON() || strings.Contains(r.Header.Get("Accept"), "application/json")

	row, err := form.Row()
	if err != nil {
		logger.InfoContext(ctx, "Entry rejected",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpValidate,
			"error_type", applog.ErrorTypeValidation)
		switch {
		case wantJSON:
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error(), "message": errorMessage(err)})
		case isHTMX(r):
			UnprocessableEntityError(errorMessage(err)).Write(w)
		default:
			st := ParseEntryState(r.URL.Query(), s.now())
			data := s.buildEntryPage(ctx, st, form)
			data.FormError = errorMessage(err)
			s.render(w, r, http.StatusUnprocessableEntity, "manual_entry.html", data)
		}
		return
	}

	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	saved, err := s.backend.CreateEntry(cctx, row)
	if err != nil {
		applog.NewStructuredLogger(logger).LogError(ctx, "Entry create failed", err,
			applog.ComponentLedger, applog.OpCreate, applog.NewFields().WithMonth(row.Date.Year(), int(row.Date.Month())))
		switch {
		case wantJSON:
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error(), "message": errorMessage(err)})
		default:
			BadGatewayError(errorMessage(err)).Write(w)
		}
		return
	}
	applog.NewStructuredLogger(logger).LogEntryCreated(ctx, saved.ID, string(saved.Type), string(saved.Segment),
		saved.Amount.String(), saved.Currency, saved.Category2, saved.ConvertedAmountBase.String())

	year, month := saved.Date.Year(), int(saved.Date.Month())
	switch {
	case wantJSON:
		writeJSON(w, http.StatusCreated, core.ToAPIRow(saved))
	case isHTMX(r):
		html, err := s.renderFragment("entry_row", toEntryRowView(saved))
		if err != nil {
			logger.ErrorContext(ctx, "Entry row render failed", applog.FieldError, err)
			html = ""
		}
		NewHTMXResponse().
			Status(http.StatusCreated).
			TriggerEntryCreated(year, month).
			TriggerFormReset().
			TriggerSummaryRefresh(year, month).
			TriggerSuccessNotification("登録しました").
			BodyHTML(html).
			Write(w)
	default:
		st := EntryState{Month: MonthState{Year: year, Month: month}}
		http.Redirect(w, r, entryHref(st), http.StatusSeeOther)
	}
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)
	id := strings.TrimSpace(r.PathValue("id"))

	cctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	err := s.backend.DeleteEntry(cctx, id)
	switch {
	case errors.Is(err, sheets.ErrNotFound):
		logger.InfoContext(ctx, "Delete of unknown entry", applog.FieldEntryID, id)
		NotFoundError(errorMessage(err)).Write(w)
		return
	case err != nil:
		applog.NewStructuredLogger(logger).LogError(ctx, "Entry delete failed", err,
			applog.ComponentLedger, applog.OpDelete, applog.NewFields())
		BadGatewayError(errorMessage(err)).Write(w)
		return
	}
	logger.InfoContext(ctx, "Ledger entry deleted",
		applog.FieldEntryID, id,
		applog.FieldOperation, applog.OpDelete)

	if isHTMX(r) {
		NewHTMXResponse().
			TriggerEntryDeleted(id).
			TriggerSuccessNotification("削除しました").
			Write(w)
		return
	}
	st := ParseEntryState(r.URL.Query(), s.now())
	http.Redirect(w, r, entryHref(st), http.StatusSeeOther)
}
