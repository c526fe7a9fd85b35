package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			JSON   string                `json:"json"`
			Field  string                `json:"field"`
			Fields []handlers.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func newBindRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	handlers.RegisterValidators()

	r := gin.New()
	r.POST("/register", func(ctx *gin.Context) {
		var req handlers.RegisterRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})

	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w := postJSON(newBindRouter(), "/register", `{"email":"not-an-email","password":"Secr3t!pw"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error.Code != "invalid_request" {
		t.Fatalf("unexpected code: %s", resp.Error.Code)
	}

	wantRules := map[string]string{
		"email": "emailshape",
		"role":  "required",
	}

	if len(resp.Error.Details.Fields) != len(wantRules) {
		t.Fatalf("got %d field errors, want %d: %+v", len(resp.Error.Details.Fields), len(wantRules), resp.Error.Details.Fields)
	}

	for _, fe := range resp.Error.Details.Fields {
		want, ok := wantRules[fe.Field]
		if !ok {
			t.Fatalf("unexpected field %q in %+v", fe.Field, resp.Error.Details.Fields)
		}
		if fe.Rule != want {
			t.Fatalf("field %q: got rule %q, want %q", fe.Field, fe.Rule, want)
		}
		if fe.Message == "" {
			t.Fatalf("field %q: expected a message", fe.Field)
		}
	}

	if strings.Contains(w.Body.String(), "Secr3t!pw") {
		t.Fatalf("response echoes the password: %s", w.Body.String())
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w := postJSON(newBindRouter(), "/register", `{"email" "a@b.co"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}

	if resp.Error.Details.JSON != "invalid_json_syntax" {
		t.Fatalf("got json detail %q, want invalid_json_syntax", resp.Error.Details.JSON)
	}
}

func TestBindJSON_TypeMismatchNamesField(t *testing.T) {
	w := postJSON(newBindRouter(), "/register", `{"email":"a@b.co","password":123,"role":"student"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusBadRequest)
	}

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}

	if resp.Error.Details.JSON != "invalid_json_type" {
		t.Fatalf("got json detail %q, want invalid_json_type", resp.Error.Details.JSON)
	}
	if resp.Error.Details.Field != "password" {
		t.Fatalf("got field %q, want password", resp.Error.Details.Field)
	}
}
