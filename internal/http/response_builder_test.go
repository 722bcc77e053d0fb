package http

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	if w.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.String() != "test" {
		t.Errorf("Body = %q, want %q", w.Body.String(), "test")
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		TriggerStagedChanged("Transactions", 3).
		TriggerSubmitted("Transactions", 3).
		TriggerFormReset().
		TriggerSuccessNotification("Saved").
		Write(w)

	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	for _, name := range []string{EventStagedChanged, EventSubmitted, EventFormReset, EventNotification} {
		if _, ok := triggers[name]; !ok {
			t.Errorf("HX-Trigger missing %q", name)
		}
	}

	var staged struct {
		Table string `json:"table"`
		Count int    `json:"count"`
	}
	if err := json.Unmarshal(triggers[EventStagedChanged], &staged); err != nil {
		t.Fatal(err)
	}
	if staged.Table != "Transactions" || staged.Count != 3 {
		t.Errorf("staged:changed = %+v", staged)
	}

	var note struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		Duration int    `json:"duration"`
	}
	if err := json.Unmarshal(triggers[EventNotification], &note); err != nil {
		t.Fatal(err)
	}
	if note.Type != "success" || note.Message != "Saved" || note.Duration != 3000 {
		t.Errorf("notification = %+v", note)
	}
}

func TestHTMXResponseBuilder_Redirect(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Status(http.StatusUnauthorized).Redirect("/login").Write(w)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d", w.Code)
	}
	if got := w.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect = %q", got)
	}
}

func TestHTMXResponseBuilder_Render(t *testing.T) {
	tmpl := template.Must(template.New("").Parse(`{{define "row"}}<td>{{.}}</td>{{end}}`))

	w := httptest.NewRecorder()
	b := NewHTMXResponse().Render(tmpl, "row", "<b>x</b>")
	b.Write(w)
	if b.RenderErr() != nil {
		t.Fatalf("RenderErr = %v", b.RenderErr())
	}
	if got := w.Body.String(); got != "<td>&lt;b&gt;x&lt;/b&gt;</td>" {
		t.Errorf("Body = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}

	w = httptest.NewRecorder()
	b = NewHTMXResponse().Render(tmpl, "missing", nil)
	b.Write(w)
	if b.RenderErr() == nil {
		t.Error("expected a render error for an unknown template")
	}
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}

	w = httptest.NewRecorder()
	NewHTMXResponse().Render(nil, "row", nil).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("nil templates: status = %d, want 500", w.Code)
	}
}

func TestErrorResponseRenderKeepsStatus(t *testing.T) {
	tmpl := template.Must(template.New("").Parse(`{{define "staged"}}<p class="error">{{.}}</p>{{end}}`))

	w := httptest.NewRecorder()
	UnprocessableEntityError("bad row").Render(tmpl, "staged", "bad row").Write(w)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Status code = %d, want 422", w.Code)
	}
	if got := w.Body.String(); got != `<p class="error">bad row</p>` {
		t.Errorf("Body = %q, want the rendered partial only", got)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"too large", RequestTooLargeError("bad"), http.StatusRequestEntityTooLarge},
		{"bad gateway", BadGatewayError("bad"), http.StatusBadGateway},
		{"internal", InternalServerError("bad"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), `class="error"`) {
				t.Errorf("Body = %q", w.Body.String())
			}
		})
	}

	w := httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, `<script>alert(1)</script>`).Write(w)
	if strings.Contains(w.Body.String(), "<script>") {
		t.Errorf("message not escaped: %q", w.Body.String())
	}
}
