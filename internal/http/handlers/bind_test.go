package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/medtranslate/internal/domain/message"
	"github.com/geocoder89/medtranslate/internal/http/handlers"
	"github.com/geocoder89/medtranslate/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func newBindRouter(limit int64) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	if limit > 0 {
		r.Use(middlewares.MaxBodyBytes(limit))
	}
	r.POST("/messages", func(ctx *gin.Context) {
		var req message.SendRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusCreated)
	})
	return r
}

func bind(t *testing.T, r *gin.Engine, body string) (*httptest.ResponseRecorder, bindErrorResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/messages", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp bindErrorResponse
	if w.Code != http.StatusCreated {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w, resp := bind(t, newBindRouter(0), `{"target_language":"Spanish"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", resp.Error.Code)

	rules := map[string]string{}
	for _, fe := range resp.Error.Details.Fields {
		rules[fe.Field] = fe.Rule
		assert.NotEmpty(t, fe.Message, fe.Field)
	}
	assert.Equal(t, map[string]string{
		"conversation_id": "required",
		"text":            "required",
	}, rules)
}

func TestBindJSON_MaxRule(t *testing.T) {
	body := `{"conversation_id":1,"text":"` + strings.Repeat("a", 4001) + `"}`
	w, resp := bind(t, newBindRouter(0), body)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Len(t, resp.Error.Details.Fields, 1)
	assert.Equal(t, handlers.FieldError{
		Field:   "text",
		Rule:    "max",
		Param:   "4000",
		Message: "must be at most 4000",
	}, resp.Error.Details.Fields[0])
}

func TestBindJSON_TypeMismatchUsesJSONFieldNames(t *testing.T) {
	w, resp := bind(t, newBindRouter(0), `{"conversation_id":"one","text":"Hello"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_json_type", resp.Error.Details.JSON)
	assert.Equal(t, "conversation_id", resp.Error.Details.Field)
	require.NotEmpty(t, resp.Error.Details.Fields)
	assert.Equal(t, "type", resp.Error.Details.Fields[0].Rule)
}

func TestBindJSON_MalformedBodies(t *testing.T) {
	cases := map[string]string{
		"":                    "empty_body",
		`{"conversation_id":`: "invalid_json_syntax",
		`{not json}`:          "invalid_json_syntax",
	}

	for body, want := range cases {
		w, resp := bind(t, newBindRouter(0), body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%q", body)
		assert.Equal(t, want, resp.Error.Details.JSON, "body=%q", body)
	}
}

func TestBindJSON_BodyTooLarge(t *testing.T) {
	body := `{"conversation_id":1,"text":"` + strings.Repeat("a", 512) + `"}`
	w, resp := bind(t, newBindRouter(64), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "payload_too_large", resp.Error.Code)
}
