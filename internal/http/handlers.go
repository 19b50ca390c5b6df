package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"tally/internal/core"
	"tally/internal/ledger"
)

const dateFormat = "02 Jan 2006 15:04"

type entryRow struct {
	ID     int64
	Name   string
	Amount string
	Date   string
}

type ledgerData struct {
	Count   int
	Total   string
	Entries []entryRow
}

type indexData struct {
	Draft  core.Draft
	Error  string
	Ledger ledgerData
}

func (s *Server) ledgerData(v ledger.View) ledgerData {
	data := ledgerData{
		Count: len(v.Entries),
		Total: core.FormatAmount(s.symbol, v.Total),
	}
	for _, e := range v.Entries {
		data.Entries = append(data.Entries, entryRow{
			ID:     e.ID,
			Name:   e.Name,
			Amount: core.FormatAmount(s.symbol, e.Amount),
			Date:   e.CreatedAt.Format(dateFormat),
		})
	}
	return data
}

// renderLedger executes the ledger partial against a fresh snapshot.
func (s *Server) renderLedger() ([]byte, error) {
	if s.templates == nil {
		return nil, errors.New("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "ledger.html", s.ledgerData(s.ledger.Snapshot())); err != nil {
		return nil, fmt.Errorf("render ledger partial: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	v := s.ledger.Snapshot()
	data := indexData{
		Draft:  v.Draft,
		Error:  v.Error,
		Ledger: s.ledgerData(v),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "method", r.Method, "url", r.URL.Path)
		resp.Write(w)
		return
	}

	s.ledger.UpdateField(ledger.FieldName, sanitizeInput(r.Form.Get("name")))
	s.ledger.UpdateField(ledger.FieldAmount, sanitizeInput(r.Form.Get("amount")))

	e, err := s.ledger.Submit()
	if err != nil {
		var ve *ledger.ValidationError
		if errors.As(err, &ve) {
			slog.WarnContext(r.Context(), "Expense rejected", "reason", ve.Error())
			UnprocessableEntityError(ve.Error()).Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Expense submit error", "error", err)
		InternalServerError("Could not record the expense").Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Expense recorded",
		"expense_id", e.ID,
		"name", e.Name,
		"amount", e.Amount.String())

	body, err := s.renderLedger()
	if err != nil {
		slog.ErrorContext(r.Context(), "Ledger render error", "error", err)
		InternalServerError("Could not render the ledger").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerFormReset().
		TriggerExpenseCreated(e.ID).
		TriggerSuccessNotification(fmt.Sprintf("Recorded %s — %s", e.Name, core.FormatAmount(s.symbol, e.Amount))).
		BodyHTML(body).
		Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		slog.ErrorContext(r.Context(), "Parse delete body error", "error", err, "method", r.Method)
		BadRequestError("Invalid request format").Write(w)
		return
	}

	idStr := parser.Get("id")
	if idStr == "" {
		BadRequestError("Missing expense id").Write(w)
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		BadRequestError("Invalid expense id").Write(w)
		return
	}

	// Unknown ids are a no-op; the refreshed partial is the answer either way.
	s.ledger.Delete(id)

	slog.InfoContext(r.Context(), "Expense deleted", "expense_id", id, "remaining", s.ledger.Len())

	body, err := s.renderLedger()
	if err != nil {
		slog.ErrorContext(r.Context(), "Ledger render error", "error", err)
		InternalServerError("Could not render the ledger").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerExpenseDeleted(id).
		BodyHTML(body).
		Write(w)
}

// handleLedgerPartial renders the list-and-total partial for HTMX refreshes.
func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	body, err := s.renderLedger()
	if err != nil {
		slog.ErrorContext(r.Context(), "Ledger render error", "error", err)
		InternalServerError("Could not render the ledger").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}
