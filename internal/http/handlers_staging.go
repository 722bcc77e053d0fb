package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/staging"
	"budget/internal/upload"
)

// recordNoun is the user-facing name of n rows of table.
func recordNoun(table core.Table, n int) string {
	if table == core.BillsTable {
		return plural(n, "bill", "bills")
	}
	return plural(n, "transaction", "transactions")
}

// renderStaged re-renders the staged list of buf with an optional message.
// Error paths pass a builder from ErrorResponse: its status is kept and its
// fragment only remains if the partial fails to render.
func renderStaged[T core.Record](s *Server, w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, buf *staging.Buffer[T], errMsg, info string) {
	s.render(w, r, b, stagedTemplate(buf.Table()), newStagedView(buf, errMsg, info))
}

// stageRecord parses one record from the posted form and appends it to buf.
// An invalid form leaves buf untouched and answers 422.
func stageRecord[T core.Record](s *Server, w http.ResponseWriter, r *http.Request, buf *staging.Buffer[T], parse func(url.Values) (T, error)) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	table := buf.Table()
	rec, err := parse(r.PostForm)
	if err != nil {
		msg := err.Error()
		var fe *FormError
		if errors.As(err, &fe) {
			msg = fe.Message
		}
		renderStaged(s, w, r, UnprocessableEntityError(msg), buf, msg, "")
		return
	}

	buf.Append(rec)
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogRows(r.Context(), "Record staged", log.ComponentStaging, log.OpStage, string(table), 1)

	b := NewHTMXResponse().
		TriggerStagedChanged(string(table), buf.Len()).
		TriggerFormReset()
	renderStaged(s, w, r, b, buf, "", fmt.Sprintf("Staged 1 %s.", recordNoun(table, 1)))
}

func clearStaged[T core.Record](s *Server, w http.ResponseWriter, r *http.Request, buf *staging.Buffer[T]) {
	table := buf.Table()
	n := buf.Len()
	buf.Clear()
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogRows(r.Context(), "Staged records cleared", log.ComponentStaging, log.OpClear, string(table), n)

	b := NewHTMXResponse().
		TriggerStagedChanged(string(table), 0).
		TriggerFormReset()
	renderStaged(s, w, r, b, buf, "", "Staged rows cleared.")
}

// submitStaged writes buf to the record store in one call. On failure the
// buffer is kept and the response is 502.
func submitStaged[T core.Record](s *Server, w http.ResponseWriter, r *http.Request, buf *staging.Buffer[T]) {
	ctx := r.Context()
	table := buf.Table()
	logger := log.NewStructuredLogger(log.FromContext(ctx))

	n, err := buf.Submit(ctx, s.ledger)
	if err != nil {
		logger.LogError(ctx, "Submit failed", err, log.ComponentStaging, log.OpSubmit,
			log.NewFields().WithRows(string(table), buf.Len()))
		msg := "Could not save to the record store. Your staged rows were kept; please try again."
		b := BadGatewayError(msg).
			TriggerErrorNotification("Saving failed. Your staged rows were kept.")
		renderStaged(s, w, r, b, buf, msg, "")
		return
	}
	if n == 0 {
		renderStaged(s, w, r, NewHTMXResponse(), buf, "", "Nothing to submit.")
		return
	}

	logger.LogRows(ctx, "Staged records submitted", log.ComponentStaging, log.OpSubmit, string(table), n)
	msg := fmt.Sprintf("Submitted %d %s.", n, recordNoun(table, n))
	b := NewHTMXResponse().
		TriggerSubmitted(string(table), n).
		TriggerStagedChanged(string(table), 0).
		TriggerSuccessNotification(msg)
	renderStaged(s, w, r, b, buf, "", msg)
}

func (s *Server) handleTransactionsPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.render(w, r, NewHTMXResponse(), "transactions", transactionsView{
		page:       s.page(r, "Transactions", "transactions"),
		Staged:     newStagedView(sess.Transactions, "", ""),
		Types:      core.TxTypes(),
		Today:      s.ledger.Today().String(),
		Extensions: acceptedExtensions(),
	})
}

func (s *Server) handleStageTransaction(w http.ResponseWriter, r *http.Request) {
	stageRecord(s, w, r, sessionFrom(r.Context()).Transactions, ParseTransactionForm)
}

// handleUploadTransactions stages every row of an uploaded file, or none of
// them when any row is malformed.
func (s *Server) handleUploadTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	buf := sessionFrom(ctx).Transactions
	logger := log.FromContext(ctx).WithComponent(log.ComponentUpload)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg := fmt.Sprintf("File is larger than %d MiB.", MaxUploadBytes>>20)
			renderStaged(s, w, r, RequestTooLargeError(msg), buf, msg, "")
			return
		}
		BadRequestError("Invalid upload request").Write(w)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		msg := "Choose a file to upload."
		renderStaged(s, w, r, UnprocessableEntityError(msg), buf, msg, "")
		return
	}
	defer file.Close()

	txs, err := upload.Parse(header.Filename, file)
	if err != nil {
		logger.WarnContext(ctx, "Upload rejected",
			log.FieldOperation, log.OpUpload,
			log.FieldFilename, header.Filename,
			log.FieldError, err)
		msg := uploadMessage(err)
		renderStaged(s, w, r, UnprocessableEntityError(msg), buf, msg, "")
		return
	}
	buf.AppendBatch(txs)
	logger.InfoContext(ctx, "Upload staged",
		log.FieldOperation, log.OpUpload,
		log.FieldFilename, header.Filename,
		log.FieldRows, len(txs))

	b := NewHTMXResponse().
		TriggerStagedChanged(string(buf.Table()), buf.Len()).
		TriggerFormReset()
	renderStaged(s, w, r, b, buf, "", fmt.Sprintf("Staged %d %s from %s.", len(txs), recordNoun(buf.Table(), len(txs)), header.Filename))
}

func uploadMessage(err error) string {
	if errors.Is(err, upload.ErrUploadFormat) {
		detail := strings.TrimPrefix(err.Error(), upload.ErrUploadFormat.Error()+": ")
		return "Could not read the file: " + detail + ". Nothing was staged."
	}
	return "Could not read the file. Nothing was staged."
}

func (s *Server) handleClearTransactions(w http.ResponseWriter, r *http.Request) {
	clearStaged(s, w, r, sessionFrom(r.Context()).Transactions)
}

func (s *Server) handleSubmitTransactions(w http.ResponseWriter, r *http.Request) {
	submitStaged(s, w, r, sessionFrom(r.Context()).Transactions)
}

func (s *Server) handleBillsPage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	s.render(w, r, NewHTMXResponse(), "bills", billsView{
		page:        s.page(r, "Bills", "bills"),
		Staged:      newStagedView(sess.Bills, "", ""),
		Recurrences: core.Recurrences(),
		MinDueDay:   core.MinDueDay,
		MaxDueDay:   core.MaxDueDay,
	})
}

func (s *Server) handleStageBill(w http.ResponseWriter, r *http.Request) {
	stageRecord(s, w, r, sessionFrom(r.Context()).Bills, ParseBillForm)
}

func (s *Server) handleClearBills(w http.ResponseWriter, r *http.Request) {
	clearStaged(s, w, r, sessionFrom(r.Context()).Bills)
}

func (s *Server) handleSubmitBills(w http.ResponseWriter, r *http.Request) {
	submitStaged(s, w, r, sessionFrom(r.Context()).Bills)
}
